package session

import "github.com/spec-kit/diagnostic-login/internal/domain"

// Phase is the position of a session in its lifecycle.
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseExchangingCode
	PhaseAuthenticated
	PhaseUnauthenticated
	PhaseExchangeError
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseExchangingCode:
		return "exchanging_code"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	case PhaseExchangeError:
		return "exchange_error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the local session. Staff is set only alongside
// Customer, and only for diagnostic sessions. On the intranet the logged-in
// staff member occupies the Customer slot.
type State struct {
	Customer *domain.Identity
	Staff    *domain.Identity
	Phase    Phase
	Error    string
}

// Diagnostic reports whether the session carries a staff companion.
func (s State) Diagnostic() bool {
	return s.Customer != nil && s.Staff != nil
}

// Settled reports whether initialization has finished.
func (s State) Settled() bool {
	return s.Phase != PhaseInitializing && s.Phase != PhaseExchangingCode
}

func unauthenticated() State {
	return State{Phase: PhaseUnauthenticated}
}

func authenticated(customer, staff *domain.Identity) State {
	if customer == nil {
		return unauthenticated()
	}
	return State{Customer: customer, Staff: staff, Phase: PhaseAuthenticated}
}
