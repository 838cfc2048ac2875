package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// Restorer rebuilds the local session from existing cookies. Failures are
// logged and settle as unauthenticated; they are never surfaced.
type Restorer struct {
	api    AuthAPI
	portal client.Portal
	logger *zap.Logger
}

// NewRestorer builds a restorer for portal.
func NewRestorer(api AuthAPI, portal client.Portal, logger *zap.Logger) *Restorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Restorer{api: api, portal: portal, logger: logger}
}

// Restore resolves the current identity, refreshing once when the access
// cookie has lapsed. The customer portal drops staff identities and looks up
// a diagnostic companion.
func (r *Restorer) Restore(ctx context.Context) State {
	me, err := r.me(ctx)
	if err != nil {
		r.logger.Warn("session restore failed", zap.Error(err))
		return unauthenticated()
	}
	if me == nil {
		return unauthenticated()
	}
	if r.portal != client.PortalCustomer {
		return authenticated(me, nil)
	}

	if me.IsStaff {
		r.logger.Debug("ignoring staff session on customer portal", zap.Int64("user_id", me.ID))
		return unauthenticated()
	}
	staff, err := r.api.DiagnosticInfo(ctx)
	if err != nil {
		r.logger.Warn("diagnostic companion lookup failed", zap.Error(err))
		staff = nil
	}
	return authenticated(me, staff)
}

func (r *Restorer) me(ctx context.Context) (*domain.Identity, error) {
	me, err := r.api.Me(ctx)
	if err != nil || me != nil {
		return me, err
	}
	if !r.api.Refresh(ctx) {
		return nil, nil
	}
	return r.api.Me(ctx)
}
