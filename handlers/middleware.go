package handlers

import (
	"net/http"
	"strings"

	"recurring-poll-backend/auth"

	"github.com/gin-gonic/gin"
)

// AdminAuth guards the admin route group. It expects a bearer token from the
// external identity provider carrying the admin role.
func AdminAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		identity, err := verifier.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if identity.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}

		c.Set("subject", identity.Subject)
		c.Next()
	}
}
