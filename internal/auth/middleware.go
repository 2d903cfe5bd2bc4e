package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionCtxKey = "session"

// Require enforces a bearer JWT with one of roles. The session is stored on
// both the gin context and the request context.
func Require(issuer *Issuer, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
			return
		}
		sess, err := issuer.Parse(strings.TrimSpace(authz[len("bearer "):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
			return
		}
		if len(roles) > 0 && !hasRole(sess, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "not allowed"})
			return
		}
		c.Set(sessionCtxKey, sess)
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// SessionOf returns the session set by Require.
func SessionOf(c *gin.Context) (Session, bool) {
	v, ok := c.Get(sessionCtxKey)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

func hasRole(s Session, roles []string) bool {
	for _, r := range roles {
		if s.Is(r) {
			return true
		}
	}
	return false
}
