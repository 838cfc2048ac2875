package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client wraps exactly one of
// ErrRejected, ErrExchangeRejected or ErrTransport.
var (
	// ErrRejected: bad credentials or a role that does not fit the portal.
	ErrRejected = errors.New("rejected")
	// ErrSessionAbsent classifies a missing session. Client never returns
	// it: Me and DiagnosticInfo report a 401 as a nil identity. Message
	// renders it for callers that build their own APIError with this kind.
	ErrSessionAbsent = errors.New("session absent")
	// ErrExchangeRejected: the one-time code is invalid, expired or already used.
	ErrExchangeRejected = errors.New("exchange rejected")
	// ErrTransport: network failure or any other non-2xx response.
	ErrTransport = errors.New("transport error")
)

var errIncompleteResponse = errors.New("response is missing an identity")

// APIError describes a failed auth API call.
type APIError struct {
	Op     string
	Status int
	Detail string
	Kind   error
	Err    error
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Message renders err as text fit for an end user: the backend's detail when
// it sent one, a generic line per error kind otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch {
	case errors.Is(err, ErrRejected):
		return "Invalid credentials."
	case errors.Is(err, ErrExchangeRejected):
		return "This diagnostic link is invalid or has expired."
	case errors.Is(err, ErrSessionAbsent):
		return "Your session has ended. Please log in again."
	default:
		return "Something went wrong. Please try again."
	}
}

func kindForStatus(status int, rejected error) error {
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return rejected
	}
	return ErrTransport
}
