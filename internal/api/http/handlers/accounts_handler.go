package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// AccountsHandler exposes admin account management.
type AccountsHandler struct {
	users *service.UserService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(userService *service.UserService) *AccountsHandler {
	return &AccountsHandler{users: userService}
}

// Create handles POST /api/users.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError("invalid account request", dto.ValidationDetails(err))
	}

	actor, _ := auth.PrincipalFromContext(c)
	created, err := h.users.CreateAccount(c.UserContext(), actor, req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AccountCreationResponse{
		Account:           dto.NewAccountResponse(created.User),
		TemporaryPassword: created.TemporaryPassword,
		Message:           "account created; the password must be changed on first login",
	}})
}

// ListActive handles GET /api/users/active.
func (h *AccountsHandler) ListActive(c *fiber.Ctx) error {
	return h.list(c, true)
}

// ListInactive handles GET /api/users/inactive.
func (h *AccountsHandler) ListInactive(c *fiber.Ctx) error {
	return h.list(c, false)
}

// Deactivate handles PATCH /api/users/:id/deactivate.
func (h *AccountsHandler) Deactivate(c *fiber.Ctx) error {
	actor, _ := auth.PrincipalFromContext(c)
	if err := h.users.DeactivateUser(c.UserContext(), actor, utils.CopyString(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reactivate handles PATCH /api/users/:id/reactivate.
func (h *AccountsHandler) Reactivate(c *fiber.Ctx) error {
	actor, _ := auth.PrincipalFromContext(c)
	if err := h.users.ReactivateUser(c.UserContext(), actor, utils.CopyString(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *AccountsHandler) list(c *fiber.Ctx, active bool) error {
	users, err := h.users.ListUsers(c.UserContext(), active)
	if err != nil {
		return err
	}
	out := make([]dto.AccountResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewAccountResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}
