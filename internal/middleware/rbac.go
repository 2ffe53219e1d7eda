package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

// RequireRoles admits only principals holding one of roles. It must run after JWT.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		principal := Principal(c)
		if principal == nil {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[principal.Role]; !ok {
			response.Abort(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireStaff admits any staff role.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.StaffRoles...)
}
