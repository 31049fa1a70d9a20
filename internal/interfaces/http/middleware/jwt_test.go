package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/auth"
	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/config"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                 "middleware-test-access-secret-000000",
		RefreshSecret:          "middleware-test-refresh-secret-00000",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
		Issuer:                 "reten-facil-test",
	})
}

func issueTestToken(t *testing.T, svc *auth.JWTService) (string, *auth.Claims) {
	t.Helper()

	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:      uuid.New(),
		AccountID:   uuid.New(),
		Email:       "maria@example.com",
		Role:        "user",
		Permissions: []string{"vouchers:issue", "vouchers:view"},
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	return pair.AccessToken, claims
}

func setupJWTRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddlewareWithConfig(cfg))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    GetJWTUserID(c),
			"account_id": GetJWTAccountID(c),
			"role":       GetJWTRole(c),
		})
	})
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	token, claims := issueTestToken(t, svc)
	r := setupJWTRouter(DefaultJWTConfig(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), claims.UserID)
	assert.Contains(t, w.Body.String(), claims.AccountID)
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	r := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTMiddleware_MalformedToken(t *testing.T) {
	r := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTMiddleware_RefreshTokenRejectedOnAccess(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:    uuid.New(),
		AccountID: uuid.New(),
		Email:     "maria@example.com",
		Role:      "user",
	})
	require.NoError(t, err)

	r := setupJWTRouter(DefaultJWTConfig(svc))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddleware_BlacklistedToken(t *testing.T) {
	svc := newTestJWTService()
	token, claims := issueTestToken(t, svc)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))

	cfg := DefaultJWTConfig(svc)
	cfg.TokenBlacklist = blacklist
	r := setupJWTRouter(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
}

func TestJWTMiddleware_SkipPaths(t *testing.T) {
	r := setupJWTRouter(DefaultJWTConfig(newTestJWTService()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
