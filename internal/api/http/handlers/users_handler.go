package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/api/dto"
	"github.com/spec-kit/diagnostic-login/internal/auth"
	"github.com/spec-kit/diagnostic-login/internal/service"
)

// UsersHandler exposes the session endpoints shared by both portals.
type UsersHandler struct {
	auth    *service.AuthService
	cookies *Cookies
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookies *Cookies) *UsersHandler {
	return &UsersHandler{auth: authService, cookies: cookies}
}

// Login handles POST /login/. The intranet adds ?require_staff=true.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}
	requireStaff := strings.EqualFold(c.Query("require_staff", "false"), "true")

	user, pair, err := h.auth.Login(c.UserContext(), req.Username, req.Password, requireStaff)
	if err != nil {
		return err
	}

	h.cookies.SetAuth(c, pair)
	return c.JSON(dto.LoginResponse{User: user.Identity()})
}

// Logout handles POST /logout/.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.auth.Logout(c.UserContext(), principal.User); err != nil {
		return err
	}
	h.cookies.Clear(c)
	return c.JSON(dto.DetailResponse{Detail: "Logged out successfully."})
}

// Refresh handles POST /refresh/.
func (h *UsersHandler) Refresh(c *fiber.Ctx) error {
	_, pair, err := h.auth.Refresh(c.UserContext(), c.Cookies(h.cookies.RefreshName()))
	if err != nil {
		return err
	}
	h.cookies.SetAuth(c, pair)
	return c.JSON(dto.DetailResponse{Detail: "Token refreshed."})
}

// Me handles GET /me/.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	return c.JSON(principal.User.Identity())
}
