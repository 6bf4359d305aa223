package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/bulletin-api/internal/service"
	appErrors "github.com/noah-isme/bulletin-api/pkg/errors"
	"github.com/noah-isme/bulletin-api/pkg/ratelimit"
	"github.com/noah-isme/bulletin-api/pkg/response"
)

// RateLimit rejects callers that exceed the limiter's window with 429 and a
// Retry-After header in whole seconds. Callers are keyed by gin's ClientIP, which
// honours forwarding headers only from the engine's trusted proxies. name labels the
// denial metric.
func RateLimit(limiter *ratelimit.Limiter, name string, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		id := c.ClientIP()
		if limiter.Allow(id) {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(id)))
			c.Next()
			return
		}

		wait := limiter.RetryAfter(id)
		seconds := int(math.Ceil(wait.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.Header("X-RateLimit-Remaining", "0")
		metrics.RecordRateLimited(name)
		response.Error(c, appErrors.ErrRateLimited)
		c.Abort()
	}
}
