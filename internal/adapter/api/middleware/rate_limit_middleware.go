package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/infrastructure/ratelimit"
	"accountmarket/pkg/errors"
	"accountmarket/pkg/logger"
	"accountmarket/pkg/response"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.RateLimiter
}

func NewRateLimitMiddleware(limiter *ratelimit.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit keys buckets by user when authenticated, otherwise by client IP.
func (m *RateLimitMiddleware) Limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get(ContextUserID).(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			allowed, retryAfter := m.limiter.Allow(key, action)
			if !allowed {
				logger.Warn("Rate limit exceeded for %s on %s", key, action)
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(seconds))
				return response.Error(c, errors.TooManyRequests("Too many requests, please try again later"))
			}

			return next(c)
		}
	}
}
