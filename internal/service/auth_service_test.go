package service

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/config"
	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/events"
	"github.com/spec-kit/diagnostic-login/internal/observability"
	"github.com/spec-kit/diagnostic-login/internal/repository"
	apperrors "github.com/spec-kit/diagnostic-login/pkg/util"
)

type fixture struct {
	svc       *AuthService
	users     *repository.MemoryUserRepository
	exchanges *repository.MemoryExchangeRepository
	metrics   *observability.Metrics
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:                "test-secret",
		AccessTokenTTLMinutes:    5,
		RefreshTokenTTLMinutes:   60,
		DiagnosticCodeTTLSeconds: 60,
		BcryptCost:               4,
	}}
	f := &fixture{
		users:     repository.NewMemoryUserRepository(),
		exchanges: repository.NewMemoryExchangeRepository(),
		metrics:   observability.NewMetrics(),
		clock:     time.Now(),
	}
	f.exchanges.WithClock(func() time.Time { return f.clock })

	dispatcher := events.NewInMemoryDispatcher()
	NewAuditService(dispatcher, zap.NewNop(), f.metrics).RegisterHandlers()

	f.svc = NewAuthService(cfg, AuthDependencies{
		UserRepo:     f.users,
		ExchangeRepo: f.exchanges,
		Dispatcher:   dispatcher,
	})
	f.svc.now = func() time.Time { return f.clock }

	n, err := SeedUsers(context.Background(), f.users, DemoUsers(), 4, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 6, n)
	return f
}

func (f *fixture) user(t *testing.T, username string) *domain.User {
	t.Helper()
	u, err := f.users.GetByUsername(context.Background(), username)
	require.NoError(t, err)
	return u
}

func statusOf(err error) int {
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.Login(ctx, "customer1", "customer123", false)
	require.NoError(t, err)
	assert.Equal(t, "customer1", user.Username)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)

	_, _, err = f.svc.Login(ctx, "customer1", "wrong", false)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	_, _, err = f.svc.Login(ctx, "nobody", "x", false)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))

	_, _, err = f.svc.Login(ctx, "customer1", "customer123", true)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
	assert.EqualError(t, err, "Staff access required.")

	staff, _, err := f.svc.Login(ctx, "staff1", "staff123", true)
	require.NoError(t, err)
	assert.True(t, staff.IsStaff)

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(2), snap.Auth["login|ok"])
	assert.Equal(t, int64(3), snap.Auth["login|rejected"])
}

func TestLoginInactiveUser(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "customer2")
	require.NoError(t, f.users.SetActive(u.ID, false))

	_, _, err := f.svc.Login(context.Background(), "customer2", "customer123", false)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Login(ctx, "customer1", "customer123", false)
	require.NoError(t, err)

	user, rotated, err := f.svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, "customer1", user.Username)
	assert.NotEqual(t, pair.Refresh, rotated.Refresh)

	_, _, err = f.svc.Refresh(ctx, "")
	assert.EqualError(t, err, "Refresh token not found.")

	_, _, err = f.svc.Refresh(ctx, pair.Access)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestDiagnosticCodeRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.user(t, "staff1")
	customer := f.user(t, "customer2")

	record, target, err := f.svc.IssueDiagnosticCode(ctx, staff, "staff-access", customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, target.ID)
	assert.NotEmpty(t, record.Code)

	result, err := f.svc.ExchangeCode(ctx, record.Code)
	require.NoError(t, err)
	assert.Equal(t, "customer2", result.Customer.Username)
	assert.Equal(t, "staff1", result.Staff.Username)
	assert.Equal(t, "staff-access", result.Record.StaffAccessToken)

	_, err = f.svc.ExchangeCode(ctx, record.Code)
	assert.EqualError(t, err, "Invalid or expired exchange code.")

	snap := f.metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Auth["diagnostic_code|issued"])
	assert.Equal(t, int64(1), snap.Auth["exchange|ok"])
	assert.Equal(t, int64(1), snap.Auth["exchange|rejected"])
}

func TestDiagnosticCodeExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, _, err := f.svc.IssueDiagnosticCode(ctx, f.user(t, "staff1"), "", f.user(t, "customer1").ID)
	require.NoError(t, err)

	f.clock = f.clock.Add(61 * time.Second)
	_, err = f.svc.ExchangeCode(ctx, record.Code)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestIssueDiagnosticCodeRejectsBadTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	staff := f.user(t, "staff1")

	_, _, err := f.svc.IssueDiagnosticCode(ctx, staff, "", f.user(t, "staff2").ID)
	assert.EqualError(t, err, "Customer not found.")

	_, _, err = f.svc.IssueDiagnosticCode(ctx, staff, "", 9999)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	_, _, err = f.svc.IssueDiagnosticCode(ctx, f.user(t, "customer1"), "", f.user(t, "customer2").ID)
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	_, err = f.svc.ExchangeCode(ctx, "")
	assert.EqualError(t, err, "Exchange code is required.")
}

func TestDiagnosticStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, pair, err := f.svc.Login(ctx, "staff2", "staff123", true)
	require.NoError(t, err)

	staff, err := f.svc.DiagnosticStaff(ctx, pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "staff2", staff.Username)

	_, customerPair, err := f.svc.Login(ctx, "customer1", "customer123", false)
	require.NoError(t, err)
	_, err = f.svc.DiagnosticStaff(ctx, customerPair.Access)
	assert.EqualError(t, err, "No active diagnostic session.")

	_, err = f.svc.DiagnosticStaff(ctx, "")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestSeedUsersIsIdempotent(t *testing.T) {
	f := newFixture(t)
	n, err := SeedUsers(context.Background(), f.users, DemoUsers(), 4, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadSeedUsers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: ops
    password: secret
    is_staff: true
  - username: acme
    password: secret
    first_name: Acme
`), 0o600))

	seeds, err := LoadSeedUsers(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.True(t, seeds[0].IsStaff)
	assert.Equal(t, "Acme", seeds[1].FirstName)

	require.NoError(t, os.WriteFile(path, []byte("users:\n  - username: nopass\n"), 0o600))
	_, err = LoadSeedUsers(path)
	assert.Error(t, err)
}
