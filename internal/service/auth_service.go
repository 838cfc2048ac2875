package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/auth"
	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/events"
	"github.com/spec-kit/diagnostic-login/internal/repository"
	apperrors "github.com/spec-kit/diagnostic-login/pkg/util"
)

// Messages returned in the {"detail": ...} body.
const (
	msgInvalidCredentials = "Invalid credentials."
	msgStaffRequired      = "Staff access required."
	msgRefreshMissing     = "Refresh token not found."
	msgCustomerNotFound   = "Customer not found."
	msgCodeRequired       = "Exchange code is required."
	msgCodeInvalid        = "Invalid or expired exchange code."
	msgNoDiagnostic       = "No active diagnostic session."
)

// AuthService coordinates login, refresh and the diagnostic code flows.
type AuthService struct {
	users      repository.UserRepository
	exchanges  repository.ExchangeRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	codeTTL    time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	ExchangeRepo repository.ExchangeRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// ExchangeResult is what a redeemed code yields.
type ExchangeResult struct {
	Customer *domain.User
	Staff    *domain.User
	Record   *domain.ExchangeRecord
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &AuthService{
		users:      deps.UserRepo,
		exchanges:  deps.ExchangeRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL()),
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
		codeTTL:    cfg.Auth.DiagnosticCodeTTL(),
		now:        time.Now,
	}
}

// Login authenticates a user. With requireStaff set, non-staff accounts are
// refused even when the password matches.
func (s *AuthService) Login(ctx context.Context, username, password string, requireStaff bool) (*domain.User, domain.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.publishLoginRejected(ctx, username, requireStaff, "unknown user")
			return nil, domain.TokenPair{}, apperrors.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, domain.TokenPair{}, err
	}
	if !user.IsActive {
		s.publishLoginRejected(ctx, username, requireStaff, "inactive")
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized(msgInvalidCredentials)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.publishLoginRejected(ctx, username, requireStaff, "bad password")
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized(msgInvalidCredentials)
	}
	if requireStaff && !user.IsStaff {
		s.publishLoginRejected(ctx, username, requireStaff, "staff required")
		return nil, domain.TokenPair{}, apperrors.NewForbidden(msgStaffRequired)
	}

	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.publish(ctx, events.EventLoginSucceeded, user, events.LoginPayload{
		Username:     user.Username,
		RequireStaff: requireStaff,
	})
	return user, pair, nil
}

// Logout records the logout. Tokens are stateless; clearing the cookies is
// the transport's job.
func (s *AuthService) Logout(ctx context.Context, user *domain.User) error {
	s.publish(ctx, events.EventLoggedOut, user, nil)
	return nil
}

// Refresh validates a refresh token and issues a rotated pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.User, domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized(msgRefreshMissing)
	}
	claims, err := s.tokenMgr.ParseToken(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized("Token is invalid or expired")
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, domain.TokenPair{}, apperrors.NewUnauthorized("Token is invalid or expired")
	}
	pair, err := s.tokenMgr.IssuePair(user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	return user, pair, nil
}

// ListCustomers returns active non-staff users ordered by username.
func (s *AuthService) ListCustomers(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListCustomers(ctx)
}

// IssueDiagnosticCode mints a one-time code binding customerID to staff.
// staffAccessToken is the caller's own access token; it travels with the
// code so the customer portal can carry the staff identity for auditing.
func (s *AuthService) IssueDiagnosticCode(ctx context.Context, staff *domain.User, staffAccessToken string, customerID int64) (*domain.ExchangeRecord, *domain.User, error) {
	if staff == nil || !staff.IsStaff {
		return nil, nil, apperrors.NewForbidden("You do not have permission to perform this action.")
	}
	customer, err := s.users.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound(msgCustomerNotFound)
		}
		return nil, nil, err
	}
	if !customer.IsCustomer() {
		return nil, nil, apperrors.NewNotFound(msgCustomerNotFound)
	}

	pair, err := s.tokenMgr.IssuePair(customer)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	record := &domain.ExchangeRecord{
		Code:                 uuid.NewString(),
		CustomerID:           customer.ID,
		StaffID:              staff.ID,
		CustomerAccessToken:  pair.Access,
		CustomerRefreshToken: pair.Refresh,
		StaffAccessToken:     staffAccessToken,
		CreatedAt:            now.UTC(),
		ExpiresAt:            now.Add(s.codeTTL),
	}
	if err := s.exchanges.Save(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("issue diagnostic code: %w", err)
	}

	s.publish(ctx, events.EventDiagnosticCodeIssued, staff, events.DiagnosticPayload{
		CustomerID: customer.ID,
		StaffID:    staff.ID,
	})
	return record, customer, nil
}

// ExchangeCode redeems a one-time code. A code can be redeemed at most once
// and only before it expires.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*ExchangeResult, error) {
	if code == "" {
		return nil, apperrors.NewValidationError(msgCodeRequired)
	}
	record, err := s.exchanges.Consume(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeUnavailable) {
			s.publish(ctx, events.EventDiagnosticCodeRejected, nil, events.DiagnosticPayload{Reason: "unavailable"})
			return nil, apperrors.NewExchangeRejected(msgCodeInvalid)
		}
		return nil, err
	}

	customer, err := s.activeUser(ctx, record.CustomerID)
	if err != nil {
		s.publish(ctx, events.EventDiagnosticCodeRejected, nil, events.DiagnosticPayload{
			CustomerID: record.CustomerID, StaffID: record.StaffID, Reason: "customer unavailable",
		})
		return nil, apperrors.NewExchangeRejected(msgCodeInvalid)
	}
	staff, err := s.activeUser(ctx, record.StaffID)
	if err != nil || !staff.IsStaff {
		s.publish(ctx, events.EventDiagnosticCodeRejected, nil, events.DiagnosticPayload{
			CustomerID: record.CustomerID, StaffID: record.StaffID, Reason: "staff unavailable",
		})
		return nil, apperrors.NewExchangeRejected(msgCodeInvalid)
	}

	s.publish(ctx, events.EventDiagnosticCodeExchanged, staff, events.DiagnosticPayload{
		CustomerID: customer.ID,
		StaffID:    staff.ID,
	})
	return &ExchangeResult{Customer: customer, Staff: staff, Record: record}, nil
}

// DiagnosticStaff resolves the staff companion of a diagnostic session from
// the staff access token carried alongside the customer's credentials.
func (s *AuthService) DiagnosticStaff(ctx context.Context, staffAccessToken string) (*domain.User, error) {
	if staffAccessToken == "" {
		return nil, apperrors.NewNotFound(msgNoDiagnostic)
	}
	claims, err := s.tokenMgr.ParseToken(staffAccessToken, domain.TokenTypeAccess)
	if err != nil {
		return nil, apperrors.NewNotFound(msgNoDiagnostic)
	}
	staff, err := s.activeUser(ctx, claims.UserID)
	if err != nil || !staff.IsStaff {
		return nil, apperrors.NewNotFound(msgNoDiagnostic)
	}
	return staff, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) activeUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (s *AuthService) publishLoginRejected(ctx context.Context, username string, requireStaff bool, reason string) {
	s.publish(ctx, events.EventLoginRejected, nil, events.LoginPayload{
		Username:     username,
		RequireStaff: requireStaff,
		Reason:       reason,
	})
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, payload interface{}) {
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{UserID: actor.ID, Username: actor.Username, IsStaff: actor.IsStaff}
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("audit handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
