package session

import (
	"context"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// AuthAPI is the slice of client.Client the session flow calls.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (domain.Identity, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*domain.Identity, error)
	Refresh(ctx context.Context) bool
	ExchangeCode(ctx context.Context, code string) (*client.Exchange, error)
	DiagnosticInfo(ctx context.Context) (*domain.Identity, error)
}

var _ AuthAPI = (*client.Client)(nil)
