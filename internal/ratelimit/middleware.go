package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware creates Gin middleware that rejects requests over the
// per-IP limit with 429.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
