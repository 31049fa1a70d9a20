package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simatecve/reten-facil-sub000/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-with-enough-length",
		RefreshSecret:          "test-refresh-secret-with-enough-length",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
		Issuer:                 "reten-facil-test",
	})
}

func testTokenInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID:      uuid.New(),
		AccountID:   uuid.New(),
		Email:       "contador@example.com",
		Role:        "user",
		Permissions: []string{"companies:read", "vouchers:write"},
	}
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	input := testTokenInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	require.NotNil(t, pair)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestJWTService_ValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	input := testTokenInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, input.AccountID.String(), claims.AccountID)
	assert.Equal(t, input.Email, claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.ElementsMatch(t, input.Permissions, claims.Permissions)
	assert.NotEmpty(t, claims.ID)

	userID, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, input.UserID, userID)

	accountID, err := claims.GetAccountUUID()
	require.NoError(t, err)
	assert.Equal(t, input.AccountID, accountID)
}

func TestJWTService_ValidateAccessToken_RejectsRefreshToken(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(testTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestJWTService_ValidateRefreshToken_RejectsAccessToken(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(testTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWTService_ValidateAccessToken_InvalidToken(t *testing.T) {
	svc := newTestJWTService()

	_, err := svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService(config.JWTConfig{
		Secret:                 "a-completely-different-secret-value-here",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
		Issuer:                 "reten-facil-test",
	})

	pair, err := other.GenerateTokenPair(testTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "test-access-secret-with-enough-length",
		AccessTokenExpiration:  -1 * time.Minute,
		RefreshTokenExpiration: 168 * time.Hour,
		Issuer:                 "reten-facil-test",
	})

	pair, err := svc.GenerateTokenPair(testTokenInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	input := testTokenInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	// Role upgrades take effect on refresh
	input.Role = "admin"
	input.Permissions = append(input.Permissions, "operators:manage")

	refreshed, err := svc.RefreshTokenPair(pair.RefreshToken, input)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
	assert.Contains(t, claims.Permissions, "operators:manage")
}

func TestJWTService_RefreshTokenPair_UserMismatch(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(testTokenInput())
	require.NoError(t, err)

	other := testTokenInput()
	_, err = svc.RefreshTokenPair(pair.RefreshToken, other)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestClaims_PermissionChecks(t *testing.T) {
	claims := &Claims{Permissions: []string{"companies:read", "vouchers:write"}}

	assert.True(t, claims.HasPermission("companies:read"))
	assert.False(t, claims.HasPermission("plans:manage"))
	assert.True(t, claims.HasAnyPermission("plans:manage", "vouchers:write"))
	assert.False(t, claims.HasAnyPermission("plans:manage", "billing:review"))
}
