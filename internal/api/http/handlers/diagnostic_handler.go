package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/api/dto"
	"github.com/spec-kit/diagnostic-login/internal/service"
)

// DiagnosticHandler exposes the customer-portal side of diagnostic sessions.
type DiagnosticHandler struct {
	auth    *service.AuthService
	cookies *Cookies
}

// NewDiagnosticHandler constructs handler.
func NewDiagnosticHandler(authService *service.AuthService, cookies *Cookies) *DiagnosticHandler {
	return &DiagnosticHandler{auth: authService, cookies: cookies}
}

// Exchange handles POST /exchange/.
func (h *DiagnosticHandler) Exchange(c *fiber.Ctx) error {
	var req dto.ExchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.auth.ExchangeCode(c.UserContext(), req.Code)
	if err != nil {
		return err
	}

	h.cookies.SetDiagnostic(c, result.Record)
	return c.JSON(dto.ExchangeResponse{
		Customer:   result.Customer.Identity(),
		Staff:      result.Staff.Identity(),
		Diagnostic: true,
	})
}

// Info handles GET /diagnostic-info/.
func (h *DiagnosticHandler) Info(c *fiber.Ctx) error {
	staff, err := h.auth.DiagnosticStaff(c.UserContext(), c.Cookies(h.cookies.StaffAccessName()))
	if err != nil {
		return err
	}
	return c.JSON(dto.DiagnosticInfoResponse{Staff: staff.Identity(), Diagnostic: true})
}
