package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dmitrymomot/authgate/pkg/clientip"
)

// ClientIP extracts the real client IP from proxy headers and stores
// it in the context for session binding and lockout keys. Runs before
// any middleware that needs the caller's address.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(KeyClientIP, clientip.GetIP(c.Request))
		c.Next()
	}
}
