package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quant/limiter"
	"github.com/wyfcoding/quant/response"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware 以客户端 IP 为 key 限流. 限流器内部出错时放行并记录日志.
func RateLimitMiddleware(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}
		if !allowed {
			response.ErrorWithStatus(c, http.StatusTooManyRequests, "too many requests", "access rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

// NewLocalRateLimitMiddleware 按客户端 IP 的本地令牌桶限流. rps <= 0 时不限流.
func NewLocalRateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	return RateLimitMiddleware(limiter.NewKeyedLimiter(rate.Limit(rps), burst, 0))
}
