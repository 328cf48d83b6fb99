package auth

import (
	"testing"

	"keyshop_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTokenConfig(t *testing.T) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-jwt-secret"
	cfg.JWT.TTL = 60
	config.AppConfig = cfg
}

func TestTokenRoundTrip(t *testing.T) {
	setupTokenConfig(t)

	token, err := GenerateToken(7, "admin")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
}

func TestTokenTampered(t *testing.T) {
	setupTokenConfig(t)

	token, err := GenerateToken(7, "admin")
	require.NoError(t, err)

	_, err = ParseToken(token + "x")
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	setupTokenConfig(t)
	token, err := GenerateToken(7, "admin")
	require.NoError(t, err)

	config.AppConfig.JWT.Secret = "another-secret"
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
}
