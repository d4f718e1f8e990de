package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-sales-api/internal/models"
	"github.com/noah-isme/course-sales-api/internal/service"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
	"github.com/noah-isme/course-sales-api/pkg/response"
)

// EnsureUser mirrors the authenticated subject into local storage before the
// request proceeds. Runs after JWT so claims are always present.
func EnsureUser(users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := users.EnsureFromClaims(c.Request.Context(), claims); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Next()
	}
}
