package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// AttendanceHandler exposes the QR attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendanceService *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendanceService}
}

// RegisterToken handles POST /api/attendance/token/register.
func (h *AttendanceHandler) RegisterToken(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.ErrUnauthenticated
	}
	req, err := parseTokenRequest(c)
	if err != nil {
		return err
	}

	token, err := h.attendance.RegisterToken(c.UserContext(), principal, req.Token)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.AttendanceTokenResponse{ExpiresAt: token.ExpiresAt},
	})
}

// Mark handles POST /api/attendance/mark. Admin only.
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.ErrUnauthenticated
	}
	req, err := parseTokenRequest(c)
	if err != nil {
		return err
	}

	record, err := h.attendance.MarkAttendance(c.UserContext(), principal, req.Token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAttendanceRecordResponse(record)})
}

// Mine handles GET /api/attendance/my.
func (h *AttendanceHandler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	records, err := h.attendance.MyAttendance(c.UserContext(), principal)
	if err != nil {
		return err
	}
	out := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, dto.NewAttendanceRecordResponse(&records[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

func parseTokenRequest(c *fiber.Ctx) (*dto.AttendanceTokenRequest, error) {
	var req dto.AttendanceTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewValidationError("attendance token required", dto.ValidationDetails(err))
	}
	return &req, nil
}
