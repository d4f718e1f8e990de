package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/internal/service"
	"github.com/noah-isme/course-sales-api/pkg/config"
)

func testToken(t *testing.T, secret, userID string) string {
	t.Helper()
	claims := &models.JWTClaims{UserID: userID, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func jwtTestRouter() (*gin.Engine, *service.TokenService) {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(config.AuthConfig{TokenSecret: "secret"})
	r := gin.New()
	r.GET("/private", JWT(tokens), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	r.GET("/public", OptionalJWT(tokens), func(c *gin.Context) {
		if _, ok := c.Get(ContextUserKey); ok {
			c.Status(http.StatusOK)
			return
		}
		c.Status(http.StatusNoContent)
	})
	return r, tokens
}

func TestJWTAcceptsBearerToken(t *testing.T) {
	r, _ := jwtTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "secret", "u1"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u1")
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	r, _ := jwtTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsBadToken(t *testing.T) {
	r, _ := jwtTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "wrong-secret", "u1"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTPassesThrough(t *testing.T) {
	r, _ := jwtTestRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/public", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer "+testToken(t, "secret", "u1"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
