package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
	"github.com/chapterhub/event-gallery/pkg/response"
)

// RequireRoles admits requests whose claims carry one of roles. It must run after
// JWT; with auth disabled it admits everything.
func RequireRoles(auth TokenValidator, roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if !auth.Enabled() {
			c.Next()
			return
		}
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin role required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards gallery mutations.
func RequireAdmin(auth TokenValidator) []gin.HandlerFunc {
	return []gin.HandlerFunc{JWT(auth), RequireRoles(auth, models.RoleAdmin)}
}
