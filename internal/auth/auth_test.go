package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/repository"
	apperrors "github.com/spec-kit/diagnostic-login/pkg/util"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	user := &domain.User{ID: 7, IsStaff: true}

	pair, err := tm.IssuePair(user)
	require.NoError(t, err)
	assert.True(t, pair.RefreshExpiresAt.After(pair.AccessExpiresAt))

	claims, err := tm.ParseToken(pair.Access, domain.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.True(t, claims.IsStaff)
	assert.NotEmpty(t, claims.ID)

	_, err = tm.ParseToken(pair.Refresh, domain.TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = NewTokenManager("other", 0, 0).ParseToken(pair.Access, domain.TokenTypeAccess)
	assert.Error(t, err)
}

func TestTokenManagerExpiry(t *testing.T) {
	now := time.Now()
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	tm.now = func() time.Time { return now }

	token, _, err := tm.GenerateToken(&domain.User{ID: 1}, domain.TokenTypeAccess)
	require.NoError(t, err)

	tm.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = tm.ParseToken(token, domain.TokenTypeAccess)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "hunter2"))
	assert.ErrorIs(t, ComparePassword(hash, "hunter3"), ErrPasswordMismatch)
	assert.Error(t, ComparePassword("not-a-hash", "hunter2"))

	hash, err = HashPassword("hunter2", 0)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func newProtectedApp(t *testing.T) (*fiber.App, *TokenManager, *repository.MemoryUserRepository) {
	t.Helper()
	users := repository.NewMemoryUserRepository()
	tm := NewTokenManager("secret", time.Minute, time.Hour)
	mw := NewAuthMiddleware(tm, users, "access_token")

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/any", mw.Handle, RequireAuthenticated(), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.Username)
	})
	app.Get("/staff", mw.Handle, RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/bare", RequireStaff(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tm, users
}

func call(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestMiddlewareAndRoles(t *testing.T) {
	app, tm, users := newProtectedApp(t)
	ctx := context.Background()

	customer := &domain.User{Username: "customer1", IsActive: true}
	staff := &domain.User{Username: "staff1", IsStaff: true, IsActive: true}
	require.NoError(t, users.Create(ctx, customer))
	require.NoError(t, users.Create(ctx, staff))

	customerPair, err := tm.IssuePair(customer)
	require.NoError(t, err)
	staffPair, err := tm.IssuePair(staff)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/any", ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/any", "garbage"))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/any", customerPair.Refresh))
	assert.Equal(t, http.StatusOK, call(t, app, "/any", customerPair.Access))

	assert.Equal(t, http.StatusForbidden, call(t, app, "/staff", customerPair.Access))
	assert.Equal(t, http.StatusNoContent, call(t, app, "/staff", staffPair.Access))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/bare", ""))

	require.NoError(t, users.SetActive(customer.ID, false))
	assert.Equal(t, http.StatusUnauthorized, call(t, app, "/any", customerPair.Access))
}
