// Package main runs the election console HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/votedesk/console/config"
	"github.com/votedesk/console/internal/auth"
	"github.com/votedesk/console/internal/console"
	"github.com/votedesk/console/internal/gateway"
	"github.com/votedesk/console/internal/metrics"
	"github.com/votedesk/console/internal/middleware"
	"github.com/votedesk/console/internal/realtime"
	"github.com/votedesk/console/pkg/queue"
	"github.com/votedesk/console/pkg/redis"
	"github.com/votedesk/console/pkg/response"
	"github.com/votedesk/console/pkg/storage"
	"github.com/votedesk/console/pkg/utils"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.VoteAPI.AdminKey == "" {
		logger.Warn("VOTE_API_ADMIN_KEY is not set; admin panel calls will fail")
	}
	if !utils.IsPasswordHash(cfg.Console.PasswordHash) {
		logger.Warn("CONSOLE_PASSWORD_HASH is missing or not a bcrypt hash; login is disabled")
	}

	metrics.Register(prometheus.DefaultRegisterer)

	api := gateway.New(gateway.Options{
		BaseURL:    cfg.VoteAPI.BaseURL,
		Credential: cfg.VoteAPI.AdminKey,
		Transport:  &http.Client{Timeout: cfg.VoteAPI.Timeout()},
		Logger:     logger.Named("gateway"),
	})

	ctx := context.Background()

	// Redis and S3 only back the ticket archive; the console runs without them.
	var (
		archiver console.Archiver
		redisSub realtime.RedisSubscriber
	)
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable; ticket archive disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		redisSub = realtime.NewRedisPubSub(rdb.Client, logger)

		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			TicketsBucket:        cfg.AWS.TicketsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 unavailable; ticket archive disabled", zap.Error(err))
		} else {
			archiver = console.NewQueueArchiver(
				queue.NewQueue(rdb.Client, logger),
				queue.NewStatusStore(rdb.Client, cfg.Archive.StatusTTL()),
				s3Client,
				logger,
			)
		}
	}

	hub := realtime.NewHub(logger, redisSub)
	registry := console.NewRegistry(api, func(id uuid.UUID) console.Notifier {
		return hub.Notifier(id)
	}, cfg.Console.IdleTimeout(), logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler := auth.NewHandler(cfg.Console.PasswordHash, jwtService, logger)
	panelHandler := console.NewHandler(registry, api, archiver, cfg.Console.FrontURL, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(metrics.Middleware())
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "sessions": registry.Len()})
	})
	router.GET("/metrics", metrics.Handler())

	router.POST("/auth/login", authHandler.Login)

	panelGroup := router.Group("/panel")
	panelGroup.Use(middleware.JWT(jwtService))
	panelHandler.Register(panelGroup)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.SessionID, nil
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go registry.Run(sweepCtx)

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("vote_api", cfg.VoteAPI.BaseURL),
			zap.Bool("archive", archiver != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
