package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// UsersHandler exposes login, token refresh and profile endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("username and password required", dto.ValidationDetails(err))
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	if result.RequirePasswordChange {
		return c.JSON(fiber.Map{"data": dto.LoginResponse{
			RequirePasswordChange: true,
			Message:               "password change required before login",
		}})
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		AccessToken:  dto.NewTokenResponse(result.AccessToken),
		RefreshToken: dto.NewTokenResponse(result.RefreshToken),
		Roles:        result.Roles,
	}})
}

// Refresh handles POST /api/auth/refresh-token. The refresh token is read
// from the Authorization header.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	token, err := auth.BearerToken(c)
	if err != nil {
		return err
	}

	access, err := h.auth.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"accessToken": dto.NewTokenResponse(&access),
	}})
}

// Me handles GET /api/auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	token, err := auth.BearerToken(c)
	if err != nil {
		return err
	}

	profile, err := h.auth.ResolveIdentity(c.UserContext(), token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ProfileResponse{
		Username:   profile.Username,
		Roles:      profile.Roles,
		Enabled:    profile.Enabled,
		FirstLogin: profile.FirstLogin,
	}})
}

// ChangeInitialPassword handles POST /api/users/change-password-first-login.
func (h *UsersHandler) ChangeInitialPassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("invalid password change request", dto.ValidationDetails(err))
	}

	if err := h.auth.ChangeInitialPassword(c.UserContext(), req.Username, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
