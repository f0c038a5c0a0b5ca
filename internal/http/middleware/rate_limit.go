package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/ledger-backend/internal/http/response"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/platform/ratelimit"
)

const codeRateLimited = "rate_limited"

var errTooManyRequests = errors.New("too many requests from this IP, try again later")

// RateLimit caps requests per client IP. A limiter error lets the request
// through.
func RateLimit(limiter ratelimit.Limiter, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		d, err := limiter.Allow(c.Request.Context(), ip)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", "error", err, "client_ip", ip)
			}
			c.Next()
			return
		}
		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			response.RespondError(c, http.StatusTooManyRequests, codeRateLimited, errTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
