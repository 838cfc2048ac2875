package dto

import "github.com/spec-kit/diagnostic-login/internal/domain"

// DiagnosticLoginRequest payload for POST /diagnostic-login/.
type DiagnosticLoginRequest struct {
	CustomerID int64 `json:"customer_id"`
}

// DiagnosticLoginResponse carries the one-time code and its target.
type DiagnosticLoginResponse struct {
	Code     string          `json:"code"`
	Customer domain.Identity `json:"customer"`
}

// ExchangeRequest payload for POST /exchange/.
type ExchangeRequest struct {
	Code string `json:"code"`
}

// ExchangeResponse carries both identities of a diagnostic session.
type ExchangeResponse struct {
	Customer   domain.Identity `json:"customer"`
	Staff      domain.Identity `json:"staff"`
	Diagnostic bool            `json:"diagnostic"`
}

// DiagnosticInfoResponse carries the staff companion of a diagnostic session.
type DiagnosticInfoResponse struct {
	Staff      domain.Identity `json:"staff"`
	Diagnostic bool            `json:"diagnostic"`
}
