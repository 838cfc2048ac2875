package domain

import "time"

// TokenType differentiates the JWTs issued by the service.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenPair is an access/refresh pair issued for one user.
type TokenPair struct {
	Access           string
	AccessExpiresAt  time.Time
	Refresh          string
	RefreshExpiresAt time.Time
}

// ExchangeRecord is what a one-time diagnostic code redeems to. It binds the
// code to exactly one (customer, staff) pair.
type ExchangeRecord struct {
	Code                 string    `json:"code"`
	CustomerID           int64     `json:"customer_id"`
	StaffID              int64     `json:"staff_id"`
	CustomerAccessToken  string    `json:"customer_access_token"`
	CustomerRefreshToken string    `json:"customer_refresh_token"`
	StaffAccessToken     string    `json:"staff_access_token"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// Expired reports whether the record can no longer be redeemed at now.
func (r *ExchangeRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
