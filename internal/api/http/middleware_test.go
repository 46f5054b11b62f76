package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/assistant-auth/internal/observability"
)

func TestErrorEnvelopeLabelsRateLimitedRequests(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Use(errorHandlingMiddleware(zap.NewNop(), observability.NewMetrics()))
	app.Post("/login", LoginRateLimit(cache, 1), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	payload := `{"phone":"60112853200","pin":"000000"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/login", strings.NewReader(payload))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if i == 0 {
			if resp.StatusCode != fiber.StatusOK {
				t.Fatalf("first attempt: expected 200, got %d", resp.StatusCode)
			}
			resp.Body.Close()
			continue
		}

		if resp.StatusCode != fiber.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", resp.StatusCode)
		}
		body := decodeJSON(t, resp)
		envelope, _ := body["error"].(map[string]any)
		if envelope["code"] != "TOO_MANY_REQUESTS" {
			t.Fatalf("429 envelope code = %v, want TOO_MANY_REQUESTS", envelope["code"])
		}
	}
}

func TestCodeForStatus(t *testing.T) {
	cases := map[int]string{
		fiber.StatusBadRequest:          "BAD_REQUEST",
		fiber.StatusUnauthorized:        "UNAUTHORIZED",
		fiber.StatusForbidden:           "FORBIDDEN",
		fiber.StatusNotFound:            "NOT_FOUND",
		fiber.StatusTooManyRequests:     "TOO_MANY_REQUESTS",
		fiber.StatusBadGateway:          "INTERNAL_ERROR",
		fiber.StatusInternalServerError: "INTERNAL_ERROR",
	}
	for status, want := range cases {
		if got := codeForStatus(status); got != want {
			t.Errorf("codeForStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
