package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/policy"
)

// Resolver resolves the session of a request into a principal.
type Resolver interface {
	Resolve(c *gin.Context) (*policy.Principal, bool)
}

// RequireAuth rejects requests without a valid session and stores the
// principal in the context for handlers.
func RequireAuth(resolver Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := resolver.Resolve(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeyPrincipal, *principal)
		c.Next()
	}
}

// GetPrincipal retrieves the authenticated principal from context
func GetPrincipal(c *gin.Context) (policy.Principal, bool) {
	value, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return policy.Principal{}, false
	}

	principal, ok := value.(policy.Principal)
	return principal, ok
}
