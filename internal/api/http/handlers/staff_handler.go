package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/api/dto"
	"github.com/spec-kit/diagnostic-login/internal/auth"
	"github.com/spec-kit/diagnostic-login/internal/service"
)

// StaffHandler exposes intranet-only endpoints.
type StaffHandler struct {
	authService *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{authService: authService}
}

// ListCustomers handles GET /users/.
func (h *StaffHandler) ListCustomers(c *fiber.Ctx) error {
	customers, err := h.authService.ListCustomers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.Identities(customers))
}

// DiagnosticLogin handles POST /diagnostic-login/.
func (h *StaffHandler) DiagnosticLogin(c *fiber.Ctx) error {
	var req dto.DiagnosticLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CustomerID <= 0 {
		return fiber.NewError(http.StatusBadRequest, "customer_id required")
	}

	principal, _ := auth.PrincipalFromContext(c)
	record, customer, err := h.authService.IssueDiagnosticCode(c.UserContext(), principal.User, principal.Token, req.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(dto.DiagnosticLoginResponse{
		Code:     record.Code,
		Customer: customer.Identity(),
	})
}
