// README: Bearer token authentication; verifies the token and stores the caller uid.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kurs/internal/infra"
)

const callerUIDKey = "caller_uid"

// Auth rejects requests without a verifiable "Authorization: Bearer <token>" header.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerUIDKey, token.UID)
		c.Next()
	}
}

// CallerUID returns the uid stored by Auth, or "" when the request is unauthenticated.
func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}
