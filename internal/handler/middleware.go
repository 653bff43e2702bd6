package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	SessionHeader  = "X-Session-ID"
	DefaultSession = "anonymous"

	sessionKey       = "session"
	maxSessionLength = 64
)

// APIKeyAuth returns a Gin middleware that enforces X-API-Key header validation.
// If key is empty, the middleware is a no-op (auth disabled).
func APIKeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-API-Key header"})
			return
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid API key"})
			return
		}
		c.Next()
	}
}

// SessionID reads the caller's session from X-Session-ID, falling back to the shared anonymous
// session, and echoes it back on the response.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := strings.TrimSpace(c.GetHeader(SessionHeader))
		if session == "" {
			session = DefaultSession
		}
		if len(session) > maxSessionLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Session-ID too long"})
			return
		}
		if !validSession(session) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Session-ID may only contain letters, digits, '_', '.' and '-'"})
			return
		}
		c.Set(sessionKey, session)
		c.Header(SessionHeader, session)
		c.Next()
	}
}

func validSession(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-':
		default:
			return false
		}
	}
	return true
}

func sessionFrom(c *gin.Context) string {
	if s := c.GetString(sessionKey); s != "" {
		return s
	}
	return DefaultSession
}
