package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
	"github.com/noah-isme/la-portal-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated principal.
const ContextUserKey = "currentUser"

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*models.Claims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			response.Abort(c, appErrors.ErrInvalidToken)
			return
		}

		c.Set(ContextUserKey, claims.Principal())
		c.Next()
	}
}

// OptionalJWT attaches the principal when a valid token is present but never blocks.
// Public routes treat a stale or malformed token as an anonymous caller.
func OptionalJWT(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := verifier.Verify(token); err == nil {
				c.Set(ContextUserKey, claims.Principal())
			}
		}
		c.Next()
	}
}

// Principal returns the caller attached by JWT or OptionalJWT, or nil.
func Principal(c *gin.Context) *models.Principal {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*models.Principal)
	return principal
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
