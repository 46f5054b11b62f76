package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assistant-auth/internal/api/dto"
	"github.com/spec-kit/assistant-auth/internal/auth"
	"github.com/spec-kit/assistant-auth/internal/config"
	"github.com/spec-kit/assistant-auth/internal/domain"
	"github.com/spec-kit/assistant-auth/internal/service"
)

// AuthHandler exposes login, registration and logout.
type AuthHandler struct {
	auth       *service.AuthService
	secureMode bool
}

// NewAuthHandler constructs handler. Secure cookies are only enforced in
// production so local development over plain HTTP keeps working.
func NewAuthHandler(authService *service.AuthService, app config.AppConfig) *AuthHandler {
	return &AuthHandler{auth: authService, secureMode: app.IsProduction()}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.Login(c.UserContext(), req.Phone, req.PIN)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, result.Token, result.ExpiresAt)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    dto.UserSummary{ID: result.User.ID, Name: result.User.Name},
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:  req.Name,
		Phone: req.PhoneValue(),
		PIN:   req.PIN,
		Email: req.Email,
		Metadata: domain.UserMetadata{
			Profession: req.Profession,
			Source:     req.Source,
			About:      req.About,
		},
	})
	if err != nil {
		return err
	}

	// 201 for a brand-new identity, 200 when a partial signup was completed.
	status := http.StatusOK
	message := "registration completed"
	if result.Created {
		status = http.StatusCreated
		message = "user registered successfully"
	}
	return c.Status(status).JSON(fiber.Map{
		"success":   true,
		"message":   message,
		"userId":    result.User.ID,
		"isNewUser": result.Created,
	})
}

// Logout handles POST /api/auth/logout. Sessions are stateless, so logout is
// purely client-side invalidation: the cookie is expired, nothing is revoked
// server-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	auth.ExpireSessionCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HTTPOnly: true,
		Secure:   h.secureMode,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
