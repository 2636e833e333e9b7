package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/adapter/ratelimit"
)

// RateLimiter throttles requests per method, route and client IP using the token bucket.
func RateLimiter(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := ratelimit.Key(c.Request.Method+" "+route, c.ClientIP())

		if !limiter.Allow(c.Request.Context(), key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Request was throttled."})
			return
		}
		c.Next()
	}
}
