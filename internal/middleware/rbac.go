package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-enroll-api/internal/models"
	appErrors "github.com/noah-isme/lms-enroll-api/pkg/errors"
	"github.com/noah-isme/lms-enroll-api/pkg/response"
)

// RequireRoles blocks requests from actors outside the listed account roles.
// Enrollment-level permissions are decided in the service layer; this guard
// only fences admin-facing surfaces.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
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
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
