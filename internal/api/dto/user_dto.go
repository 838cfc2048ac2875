package dto

import "github.com/spec-kit/diagnostic-login/internal/domain"

// LoginRequest payload for POST /login/.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse body for a successful login.
type LoginResponse struct {
	User domain.Identity `json:"user"`
}

// DetailResponse is the body of plain acknowledgements and of every error.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// Identities projects users onto their public representation.
func Identities(users []*domain.User) []domain.Identity {
	out := make([]domain.Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Identity())
	}
	return out
}
