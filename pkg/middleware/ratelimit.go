package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"service-dispatch/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Counter is the subset of the cache used for fixed-window counting.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
}

type RateLimitConfig struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// RateLimit limits requests per client IP with INCR+EXPIRE. Counter errors fail open.
func RateLimit(counter Counter, cfg RateLimitConfig, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if counter == nil || cfg.Limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("ratelimit:%s:%s", cfg.Scope, c.RealIP())

			count, err := counter.Incr(ctx, key)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if count == 1 {
				if _, err := counter.Expire(ctx, key, cfg.Window); err != nil {
					logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
				}
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				h.Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, &utils.HTTPResponse{
					Status:  false,
					Message: "Too many requests, please try again later",
				})
			}
			return next(c)
		}
	}
}
