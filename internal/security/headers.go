// Package security hardens the HTTP surface of the prediction API.
package security

import (
	"os"

	"github.com/gin-gonic/gin"
)

// HeadersMiddleware sets defensive response headers on every route.
// The service renders no HTML, so the policy can be strict across the
// board.
func HeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Cache-Control", "no-store")

		// Only meaningful behind TLS.
		if os.Getenv("ENABLE_HSTS") == "true" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
