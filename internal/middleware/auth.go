package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
)

const identityKey = "identity"

// RequireUser resolves the bearer token through the identity provider and
// aborts with 401 when the caller cannot be identified.
func RequireUser(provider auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := provider.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if ident == nil {
			log.Println("[AUTH] [ERROR] missing token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// RequireAdmin is RequireUser plus an admin role check.
func RequireAdmin(provider auth.Provider) gin.HandlerFunc {
	requireUser := RequireUser(provider)
	return func(c *gin.Context) {
		requireUser(c)
		if c.IsAborted() {
			return
		}
		if !IdentityFrom(c).IsAdmin() {
			log.Println("[AUTH] [ERROR] admin role required")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
	}
}

// IdentityFrom returns the identity stored by RequireUser, or nil.
func IdentityFrom(c *gin.Context) *auth.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	ident, _ := value.(*auth.Identity)
	return ident
}
