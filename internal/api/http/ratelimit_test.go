package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupRateLimitedApp(t *testing.T, maxPerMin int) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	app.Post("/login", LoginRateLimit(cache, maxPerMin), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}
	return app, cleanup
}

func attemptLogin(t *testing.T, app *fiber.App, payload string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitBlocksBursts(t *testing.T) {
	app, cleanup := setupRateLimitedApp(t, 3)
	defer cleanup()

	payload := `{"phone":"60112853200","pin":"000000"}`
	for i := 0; i < 3; i++ {
		if status := attemptLogin(t, app, payload); status != fiber.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, status)
		}
	}
	if status := attemptLogin(t, app, payload); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget exhausted, got %d", status)
	}
}

func TestLoginRateLimitKeysOnNormalizedPhone(t *testing.T) {
	app, cleanup := setupRateLimitedApp(t, 2)
	defer cleanup()

	// Formatting variants of one number share a single budget.
	if status := attemptLogin(t, app, `{"phone":"+60 112-853-200","pin":"000000"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if status := attemptLogin(t, app, `{"phone":"(60)112853200","pin":"000000"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if status := attemptLogin(t, app, `{"phone":"60112853200","pin":"000000"}`); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 for shared budget, got %d", status)
	}

	// A different number has its own budget.
	if status := attemptLogin(t, app, `{"phone":"15550000000","pin":"000000"}`); status != fiber.StatusOK {
		t.Fatalf("expected 200 for distinct phone, got %d", status)
	}
}

func TestLoginRateLimitFailsOpenWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/login", LoginRateLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	for i := 0; i < 3; i++ {
		if status := attemptLogin(t, app, `{"phone":"60112853200"}`); status != fiber.StatusOK {
			t.Fatalf("no-redis limiter must fail open, got %d", status)
		}
	}
}
