// README: Builds the role session for the authenticated caller and gates routes by acting role.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"kurs/internal/modules/role"
	"kurs/internal/types"
)

const sessionKey = "role_session"

type SessionResolver interface {
	Resolve(ctx context.Context, principal types.ID) (role.Session, error)
}

// Session resolves the caller's granted and acting roles. It must run after Auth.
func Session(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := CallerUID(c)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		sess, err := resolver.Resolve(c.Request.Context(), types.ID(uid))
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// SessionFrom returns the session stored by Session.
func SessionFrom(c *gin.Context) (role.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return role.Session{}, false
	}
	sess, ok := v.(role.Session)
	return sess, ok
}

// RequireActing allows the request only when the caller is currently acting as r.
func RequireActing(r role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		if !sess.IsActing(r) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "acting role " + string(r) + " required"})
			return
		}
		c.Next()
	}
}
