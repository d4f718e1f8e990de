package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/pkg/config"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenServiceVerify(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{TokenSecret: "secret"})

	claims := &models.JWTClaims{
		UserID:  "u1",
		Email:   "u1@example.com",
		IsStaff: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	parsed, err := svc.Verify(signToken(t, "secret", claims))
	require.NoError(t, err)
	assert.Equal(t, "u1", parsed.UserID)
	assert.True(t, parsed.IsStaff)
}

func TestTokenServiceVerifyWrongSecret(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{TokenSecret: "secret"})

	claims := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	_, err := svc.Verify(signToken(t, "other", claims))
	assert.Error(t, err)
}

func TestTokenServiceVerifyExpired(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{TokenSecret: "secret"})

	claims := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}

	_, err := svc.Verify(signToken(t, "secret", claims))
	assert.Error(t, err)
}

func TestTokenServiceVerifyIssuer(t *testing.T) {
	svc := NewTokenService(config.AuthConfig{TokenSecret: "secret", Issuer: "idp"})

	good := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "idp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	_, err := svc.Verify(signToken(t, "secret", good))
	require.NoError(t, err)

	bad := &models.JWTClaims{UserID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	_, err = svc.Verify(signToken(t, "secret", bad))
	assert.Error(t, err)
}
