package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/assistant-auth/internal/api/http/handlers"
	"github.com/spec-kit/assistant-auth/internal/auth"
	"github.com/spec-kit/assistant-auth/internal/config"
	"github.com/spec-kit/assistant-auth/internal/events"
	"github.com/spec-kit/assistant-auth/internal/observability"
	"github.com/spec-kit/assistant-auth/internal/persistence"
	"github.com/spec-kit/assistant-auth/internal/repository"
	"github.com/spec-kit/assistant-auth/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := config.Config{
		App: config.AppConfig{Name: "assistant-auth-test", Env: "test", Version: "test"},
		Auth: config.AuthConfig{
			SessionSecret:   "test-secret",
			SessionTTLHours: 1,
			BcryptCost:      4,
		},
	}

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:   repository.NewMemoryUserRepository(),
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	guard := auth.NewRouteGuard(authService.Sessions(), logger, metrics)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, guard, 0)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, &persistence.Postgres{}, &persistence.Redis{}),
		Auth:    handlers.NewAuthHandler(authService, cfg.App),
		Profile: handlers.NewProfileHandler(authService),
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, payload string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestRegisterLoginAndProtectedAccess(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/register",
		`{"name":"Aisha","phone":"+60 112-853-2005","pin":"482913","email":"aisha@example.com"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	regBody := decodeJSON(t, resp)
	if regBody["isNewUser"] != true {
		t.Fatalf("expected isNewUser=true, got %v", regBody["isNewUser"])
	}
	userID, _ := regBody["userId"].(string)
	if userID == "" {
		t.Fatal("register response missing userId")
	}

	// Login with a different formatting variant of the same phone.
	resp = postJSON(t, app, "/api/auth/login", `{"phone":"60-1128532005","pin":"482913"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("login must set the session cookie")
	}
	if !cookie.HttpOnly {
		t.Fatal("session cookie must be http-only")
	}
	loginBody := decodeJSON(t, resp)
	user, _ := loginBody["user"].(map[string]any)
	if user["id"] != userID {
		t.Fatalf("login identity %v, registered %v", user["id"], userID)
	}

	// Protected resource without the cookie.
	req := httptest.NewRequest(fiber.MethodGet, "/api/protected/me", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", resp.StatusCode)
	}

	// Protected resource with the issued cookie.
	req = httptest.NewRequest(fiber.MethodGet, "/api/protected/me", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", resp.StatusCode)
	}
	meBody := decodeJSON(t, resp)
	profile, _ := meBody["user"].(map[string]any)
	if profile["id"] != userID {
		t.Fatalf("profile identity %v, want %v", profile["id"], userID)
	}
}

func TestRepeatRegistrationCompletesProfile(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/register",
		`{"name":"Aisha","phoneNumber":"60112853200","pin":"482913"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, app, "/api/auth/register",
		`{"name":"Aisha Binti","phone":"(60)112853200","pin":"482913","profession":"engineer"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("second register: expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp)
	if body["isNewUser"] != false {
		t.Fatalf("expected isNewUser=false, got %v", body["isNewUser"])
	}
}

func TestLoginFailuresShareOneShape(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/register",
		`{"name":"Aisha","phone":"60112853200","pin":"482913"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	wrongPIN := postJSON(t, app, "/api/auth/login", `{"phone":"60112853200","pin":"000000"}`)
	unknownPhone := postJSON(t, app, "/api/auth/login", `{"phone":"15550000000","pin":"482913"}`)

	if wrongPIN.StatusCode != http.StatusUnauthorized || unknownPhone.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPIN.StatusCode, unknownPhone.StatusCode)
	}

	bodyA := decodeJSON(t, wrongPIN)
	bodyB := decodeJSON(t, unknownPhone)
	rawA, _ := json.Marshal(bodyA)
	rawB, _ := json.Marshal(bodyB)
	if string(rawA) != string(rawB) {
		t.Fatalf("rejection bodies differ: %s vs %s", rawA, rawB)
	}
	if sessionCookie(wrongPIN) != nil {
		t.Fatal("no session cookie may be set on a rejected login")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/auth/logout", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value != "" {
		t.Fatal("logout must expire the session cookie")
	}
}

func TestUnknownPathIsProtected(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(fiber.MethodGet, "/some/new/page", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("unlisted path must redirect to login, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); !strings.HasPrefix(got, auth.LoginPath) {
		t.Fatalf("unexpected redirect target %q", got)
	}
}
