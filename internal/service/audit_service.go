package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/events"
	"github.com/spec-kit/diagnostic-login/internal/observability"
)

// AuditService records authentication and diagnostic-session events.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLogin)
	a.dispatcher.Subscribe(events.EventLoginRejected, a.handleLogin)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleLogout)
	a.dispatcher.Subscribe(events.EventDiagnosticCodeIssued, a.handleDiagnostic)
	a.dispatcher.Subscribe(events.EventDiagnosticCodeExchanged, a.handleDiagnostic)
	a.dispatcher.Subscribe(events.EventDiagnosticCodeRejected, a.handleDiagnostic)
}

func (a *AuditService) handleLogin(_ context.Context, event events.Event) error {
	outcome := "ok"
	if event.Type == events.EventLoginRejected {
		outcome = "rejected"
	}
	a.metrics.RecordAuth("login", outcome)
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.Actor.UserID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleLogout(_ context.Context, event events.Event) error {
	a.metrics.RecordAuth("logout", "ok")
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.Actor.UserID))
	return nil
}

func (a *AuditService) handleDiagnostic(_ context.Context, event events.Event) error {
	switch event.Type {
	case events.EventDiagnosticCodeIssued:
		a.metrics.RecordAuth("diagnostic_code", "issued")
	case events.EventDiagnosticCodeExchanged:
		a.metrics.RecordAuth("exchange", "ok")
	case events.EventDiagnosticCodeRejected:
		a.metrics.RecordAuth("exchange", "rejected")
	}
	a.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("actor_id", event.Actor.UserID),
		zap.Bool("actor_is_staff", event.Actor.IsStaff),
		zap.Any("payload", event.Payload))
	return nil
}
