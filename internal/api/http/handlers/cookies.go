package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// Cookies writes the credential cookies. Regular logins get persistent
// cookies; diagnostic sessions get session-only ones that die with the tab.
type Cookies struct {
	cfg        config.CookieConfig
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookies constructs the writer.
func NewCookies(cfg config.CookieConfig, accessTTL, refreshTTL time.Duration) *Cookies {
	return &Cookies{cfg: cfg, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// AccessName is the access token cookie name.
func (k *Cookies) AccessName() string { return k.cfg.AccessName }

// RefreshName is the refresh token cookie name.
func (k *Cookies) RefreshName() string { return k.cfg.RefreshName }

// StaffAccessName is the diagnostic staff token cookie name.
func (k *Cookies) StaffAccessName() string { return k.cfg.StaffAccessName }

// SetAuth sets persistent access and refresh cookies.
func (k *Cookies) SetAuth(c *fiber.Ctx, pair domain.TokenPair) {
	c.Cookie(k.cookie(k.cfg.AccessName, pair.Access, int(k.accessTTL.Seconds())))
	c.Cookie(k.cookie(k.cfg.RefreshName, pair.Refresh, int(k.refreshTTL.Seconds())))
}

// SetDiagnostic sets session-only customer and staff cookies.
func (k *Cookies) SetDiagnostic(c *fiber.Ctx, record *domain.ExchangeRecord) {
	for _, ck := range []*fiber.Cookie{
		k.cookie(k.cfg.AccessName, record.CustomerAccessToken, 0),
		k.cookie(k.cfg.RefreshName, record.CustomerRefreshToken, 0),
		k.cookie(k.cfg.StaffAccessName, record.StaffAccessToken, 0),
	} {
		ck.SessionOnly = true
		c.Cookie(ck)
	}
}

// Clear expires every credential cookie, diagnostic ones included.
func (k *Cookies) Clear(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	for _, name := range []string{k.cfg.AccessName, k.cfg.RefreshName, k.cfg.StaffAccessName} {
		ck := k.cookie(name, "", 0)
		ck.Expires = past
		c.Cookie(ck)
	}
}

func (k *Cookies) cookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   k.cfg.Secure,
		HTTPOnly: true,
		SameSite: k.cfg.SameSite,
	}
}
