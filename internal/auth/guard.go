package auth

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/assistant-auth/internal/observability"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "session"

	// UserIDHeader carries the guard-verified identity to downstream
	// handlers. The guard strips any caller-supplied value before setting
	// its own, so downstream code must only ever trust this header.
	UserIDHeader = "X-User-ID"

	// LoginPath is where unauthenticated browsers get redirected.
	LoginPath = "/login"

	userIDKey = "auth_user_id"
)

// RouteClass partitions paths into public and protected.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtected
)

// defaultPublicPrefixes lists the path prefixes reachable without a session.
// Everything not listed here is protected: classification is deny-by-default,
// so a newly added route cannot accidentally ship unauthenticated.
var defaultPublicPrefixes = []string{
	"/login",
	"/register",
	"/about-us",
	"/features",
	"/use-cases",
	"/health",
	"/api/auth",
}

// RouteGuard is the per-request gate in front of protected resources. It is
// stateless: each request is classified by path, then a protected request
// must present a cookie that verifies, or it is turned away.
type RouteGuard struct {
	sessions       *SessionManager
	logger         *zap.Logger
	metrics        *observability.Metrics
	publicPrefixes []string
}

// NewRouteGuard constructs the guard with the default public allowlist.
func NewRouteGuard(sessions *SessionManager, logger *zap.Logger, metrics *observability.Metrics) *RouteGuard {
	return &RouteGuard{
		sessions:       sessions,
		logger:         logger,
		metrics:        metrics,
		publicPrefixes: defaultPublicPrefixes,
	}
}

// Classify is a pure function of the path, evaluated before any session
// check. The root landing page is public by exact match only.
func (g *RouteGuard) Classify(path string) RouteClass {
	if path == "/" {
		return RoutePublic
	}
	for _, prefix := range g.publicPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return RoutePublic
		}
	}
	return RouteProtected
}

// Handle enforces session presence on protected paths and attaches the
// verified identity for downstream handlers.
func (g *RouteGuard) Handle(c *fiber.Ctx) error {
	// Never let a forged identity header through, public path or not.
	c.Request().Header.Del(UserIDHeader)

	if g.Classify(c.Path()) == RoutePublic {
		return c.Next()
	}

	token := c.Cookies(SessionCookieName)
	if token == "" {
		return g.deny(c, false)
	}

	userID, err := g.sessions.Verify(token)
	if err != nil {
		// Cause stays in the log; the client only learns the session
		// did not pass.
		g.logger.Debug("session rejected",
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return g.deny(c, true)
	}

	g.metrics.RecordAuthOutcome(observability.OutcomeGuardAllowed)
	c.Locals(userIDKey, userID)
	c.Request().Header.Set(UserIDHeader, userID)
	return c.Next()
}

// deny turns away an unauthenticated request. A cookie that was present but
// failed verification is expired on the way out so stale or forged tokens do
// not get replayed on every subsequent request.
func (g *RouteGuard) deny(c *fiber.Ctx, clearCookie bool) error {
	g.metrics.RecordAuthOutcome(observability.OutcomeGuardRedirected)

	if clearCookie {
		ExpireSessionCookie(c)
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return apperrors.NewInvalidSession()
	}

	target := LoginPath
	if next := originalTarget(c); next != "" {
		target += "?next=" + url.QueryEscape(next)
	}
	return c.Redirect(target, fiber.StatusFound)
}

// originalTarget preserves the requested path+query for post-login redirect.
func originalTarget(c *fiber.Ctx) string {
	path := c.Path()
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		path += "?" + qs
	}
	return path
}

// UserIDFromContext retrieves the guard-attached identity.
func UserIDFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(userIDKey)
	if val == nil {
		return "", false
	}
	userID, ok := val.(string)
	return userID, ok && userID != ""
}

// ExpireSessionCookie clears the session cookie on the response; used by the
// logout handler as well as the guard itself.
func ExpireSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
	})
}
