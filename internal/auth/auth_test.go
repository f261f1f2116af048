package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/votedesk/console/pkg/response"
	"github.com/votedesk/console/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, claims, err := svc.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, claims.SessionID)

	got, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, got.SessionID)

	_, err = NewJWTService("other", 1).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredAndSessionless(t *testing.T) {
	svc := NewJWTService("secret", 1)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := svc.Generate()
	require.NoError(t, err)
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	bare := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := bare.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func login(t *testing.T, h *Handler, password string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/auth/login", h.Login)
	body, _ := json.Marshal(LoginRequest{Password: password})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	return w
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("hunter2")
	require.NoError(t, err)
	svc := NewJWTService("secret", 1)
	h := NewHandler(hash, svc, nil)

	w := login(t, h, "hunter2")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool          `json:"success"`
		Data    TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	claims, err := svc.Validate(body.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID.String(), body.Data.SessionID)

	w = login(t, h, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	w := login(t, NewHandler("", NewJWTService("secret", 1), nil), "anything")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "not configured")
}
