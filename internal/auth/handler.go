package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/votedesk/console/pkg/response"
	"github.com/votedesk/console/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. passwordHash is the bcrypt hash of the
// operator password.
func NewHandler(passwordHash string, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if h.passwordHash == "" {
		h.logger.Error("login attempted but CONSOLE_PASSWORD_HASH is not set")
		response.Internal(c, "console password is not configured")
		return
	}
	if !utils.CheckPassword(req.Password, h.passwordHash) {
		h.logger.Warn("failed login", zap.String("client_ip", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}

	token, claims, err := h.jwt.Generate()
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	h.logger.Info("operator logged in", zap.String("session_id", claims.SessionID.String()))
	response.OK(c, TokenResponse{
		Token:     token,
		SessionID: claims.SessionID.String(),
		ExpiresAt: claims.ExpiresAt.Time,
	})
}
