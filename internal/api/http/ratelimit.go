package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/assistant-auth/internal/auth"
)

// LoginRateLimit limits login attempts per phone or IP using Redis if
// available. The window key is the normalized phone so formatting variants of
// the same number share one budget.
func LoginRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			Phone string `json:"phone"`
		}
		_ = c.BodyParser(&req)
		subject := auth.NormalizePhone(req.Phone)
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:login:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
