package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server  ServerConfig
	VoteAPI VoteAPIConfig
	Console ConsoleConfig
	Redis   RedisConfig
	JWT     JWTConfig
	AWS     AWSConfig
	Archive ArchiveConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:5173,http://localhost:3000)
}

// VoteAPIConfig points at the remote voting service.
type VoteAPIConfig struct {
	BaseURL    string
	AdminKey   string // bearer credential for /admin routes; empty fails admin calls locally
	TimeoutSec int
}

// Timeout is the per-request HTTP timeout for the voting service.
func (c VoteAPIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// ConsoleConfig holds operator-facing settings.
type ConsoleConfig struct {
	FrontURL     string // voter site; ticket QR codes link to <FrontURL>/loading
	PasswordHash string // bcrypt hash of the operator password
	IdleMinutes  int
}

// IdleTimeout is how long an operator session survives without requests.
func (c ConsoleConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	TicketsBucket        string
	PresignExpireMinutes int
}

// ArchiveConfig controls ticket sheet archive jobs.
type ArchiveConfig struct {
	StatusTTLHours int
	MetricsAddr    string // worker-only /metrics listener
}

// StatusTTL is how long a job status is kept in redis.
func (c ArchiveConfig) StatusTTL() time.Duration {
	return time.Duration(c.StatusTTLHours) * time.Hour
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "12"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		},
		VoteAPI: VoteAPIConfig{
			BaseURL:    strings.TrimRight(getEnv("VOTE_API_BASE_URL", "http://localhost:8085"), "/"),
			AdminKey:   getEnv("VOTE_API_ADMIN_KEY", ""),
			TimeoutSec: getEnvInt("VOTE_API_TIMEOUT_SEC", 30),
		},
		Console: ConsoleConfig{
			FrontURL:     strings.TrimRight(getEnv("FRONT_URL", "http://localhost:5173"), "/"),
			PasswordHash: getEnv("CONSOLE_PASSWORD_HASH", ""),
			IdleMinutes:  getEnvInt("SESSION_IDLE_MINUTES", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			TicketsBucket:        getEnv("AWS_S3_TICKETS_BUCKET", "votedesk-ticket-sheets"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Archive: ArchiveConfig{
			StatusTTLHours: getEnvInt("ARCHIVE_STATUS_TTL_HOURS", 72),
			MetricsAddr:    getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
	}
	if cfg.Console.IdleMinutes <= 0 {
		return nil, errors.New("SESSION_IDLE_MINUTES must be positive")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
