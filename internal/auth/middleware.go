package auth

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/diagnostic-login/internal/domain"
	"github.com/spec-kit/diagnostic-login/internal/repository"
	apperrors "github.com/spec-kit/diagnostic-login/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User  *domain.User
	Token string
}

// UserLookup is the slice of the user repository the middleware needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// AuthMiddleware validates the access token cookie and loads the principal.
type AuthMiddleware struct {
	tokens     *TokenManager
	users      UserLookup
	cookieName string
}

// NewAuthMiddleware constructs middleware reading the named access cookie.
func NewAuthMiddleware(tokens *TokenManager, users UserLookup, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, cookieName: cookieName}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.Authenticate(c.UserContext(), c.Cookies(m.cookieName))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Authenticate resolves an access token to an active user.
func (m *AuthMiddleware) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("Authentication credentials were not provided.")
	}

	claims, err := m.tokens.ParseToken(token, domain.TokenTypeAccess)
	if err != nil {
		return nil, apperrors.NewUnauthorized("Given token not valid for any token type")
	}

	user, err := m.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("User not found")
		}
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("User is inactive")
	}
	return &Principal{User: user, Token: token}, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
