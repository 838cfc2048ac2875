package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// ErrWrongTokenType is returned when a refresh token is presented as an access
// token or the other way around.
var ErrWrongTokenType = errors.New("unexpected token type")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 5 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Claims describes JWT payload.
type Claims struct {
	UserID  int64            `json:"user_id"`
	IsStaff bool             `json:"is_staff"`
	Type    domain.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// AccessTTL returns the lifetime of access tokens.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (tm *TokenManager) RefreshTTL() time.Duration { return tm.refreshTTL }

// IssuePair builds an access and refresh token for the user.
func (tm *TokenManager) IssuePair(user *domain.User) (domain.TokenPair, error) {
	access, accessExp, err := tm.GenerateToken(user, domain.TokenTypeAccess)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, refreshExp, err := tm.GenerateToken(user, domain.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{
		Access:           access,
		AccessExpiresAt:  accessExp,
		Refresh:          refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// GenerateToken builds and signs a JWT of the given type for the user.
func (tm *TokenManager) GenerateToken(user *domain.User, tokenType domain.TokenType) (string, time.Time, error) {
	ttl := tm.accessTTL
	if tokenType == domain.TokenTypeRefresh {
		ttl = tm.refreshTTL
	}
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID:  user.ID,
		IsStaff: user.IsStaff,
		Type:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the signature, expiry and type and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string, want domain.TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
