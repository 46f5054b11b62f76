package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/assistant-auth/internal/api/dto"
	"github.com/spec-kit/assistant-auth/internal/auth"
	"github.com/spec-kit/assistant-auth/internal/service"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

// ProfileHandler serves the protected profile view. It trusts only the
// identity the route guard attached; nothing from the request body or
// caller-supplied headers identifies the user.
type ProfileHandler struct {
	auth *service.AuthService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(authService *service.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: authService}
}

// Me handles GET /api/protected/me.
func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return apperrors.NewInvalidSession()
	}

	user, err := h.auth.GetProfile(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": dto.ProfileResponse{
			ID:                  user.ID,
			Name:                user.Name,
			Email:               user.Email,
			Profession:          user.Metadata.Profession,
			Source:              user.Metadata.Source,
			About:               user.Metadata.About,
			OnboardingCompleted: user.OnboardingCompleted,
		},
	})
}
