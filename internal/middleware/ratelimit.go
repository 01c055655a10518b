// Package middleware provides authentication, rate limiting and request
// context middleware for the application.
package middleware

import (
	"context"
	"fmt"
	"time"

	"mural/internal/config"
	"mural/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if the store is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request (503) if the store is unavailable.
	FailClosed
)

// RateLimiter is a fixed-window request limiter backed by Redis. Limiting is
// disabled in the test and development environments so local and CI workflows
// are not throttled.
type RateLimiter struct {
	cfg *config.Config
	rdb *redis.Client
}

// NewRateLimiter returns a limiter bound to the given config and Redis client.
func NewRateLimiter(cfg *config.Config, rdb *redis.Client) *RateLimiter {
	return &RateLimiter{cfg: cfg, rdb: rdb}
}

func (rl *RateLimiter) disabled() bool {
	switch rl.cfg.Env {
	case "test", "development", "":
		return true
	}
	return false
}

// Allow consumes one request from the window for the given resource and
// client key and reports whether the request is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, resource, client string, limit int, window time.Duration) (bool, error) {
	if rl.disabled() {
		return true, nil
	}
	if rl.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("ratelimit:%s:%s", resource, client)
	count, err := rl.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	// First hit in the window starts the expiry clock.
	if count == 1 {
		rl.rdb.Expire(ctx, key, window)
	}
	return count <= int64(limit), nil
}

// Limit returns a handler enforcing `limit` requests per `window`, failing
// open when the store is unreachable. Requests are keyed by authenticated
// user when available, otherwise by remote IP; the optional name overrides
// the request path as the resource identifier.
func (rl *RateLimiter) Limit(limit int, window time.Duration, name ...string) fiber.Handler {
	return rl.LimitWithPolicy(limit, window, FailOpen, name...)
}

// LimitWithPolicy is Limit with an explicit store-failure policy.
func (rl *RateLimiter) LimitWithPolicy(limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		client := "ip:" + c.IP()
		if uid := c.Locals("userID"); uid != nil {
			client = fmt.Sprintf("user:%v", uid)
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, err := rl.Allow(c.UserContext(), resource, client, limit, window)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable",
				"resource", resource,
				"error", err,
			)
			if policy == FailClosed {
				return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
					Code:  models.CodeDependency,
					Error: "rate limit unavailable",
				})
			}
			return c.Next()
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
