package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
)

// Outcome says what the coordinator did with an entry URL.
type Outcome int

const (
	// OutcomeNoCode: nothing to redeem, restore the session instead.
	OutcomeNoCode Outcome = iota
	// OutcomeDuplicate: another initialization owns the exchange. Make no
	// calls and change no state.
	OutcomeDuplicate
	// OutcomeHandled: the code was redeemed or rejected.
	OutcomeHandled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoCode:
		return "no_code"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "handled"
	}
}

// Coordinator redeems one-time diagnostic codes found in the entry URL.
type Coordinator struct {
	api    AuthAPI
	guard  *ExchangeGuard
	logger *zap.Logger
}

// NewCoordinator builds a coordinator. A nil guard uses DefaultExchangeGuard.
func NewCoordinator(api AuthAPI, guard *ExchangeGuard, logger *zap.Logger) *Coordinator {
	if guard == nil {
		guard = DefaultExchangeGuard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{api: api, guard: guard, logger: logger}
}

// Claim inspects the address bar. When a code is present it sets the guard
// and strips the code from the visible URL, in that order, before any
// network call. The returned code is non-empty only with OutcomeHandled,
// in which case the caller must pass it to Redeem.
func (c *Coordinator) Claim(bar AddressBar) (string, Outcome) {
	raw := bar.URL()
	code, stripped, found := ExtractCode(raw)
	if !found {
		if c.guard.Started() {
			return "", OutcomeDuplicate
		}
		return "", OutcomeNoCode
	}

	acquired := code != "" && c.guard.TryAcquire()
	bar.Replace(stripped)

	switch {
	case code == "":
		if c.guard.Started() {
			return "", OutcomeDuplicate
		}
		return "", OutcomeNoCode
	case !acquired:
		c.logger.Debug("exchange already in progress")
		return "", OutcomeDuplicate
	}
	return code, OutcomeHandled
}

// Redeem exchanges code. Success yields a dual-identity session; failure
// keeps the identities of prior and settles PhaseExchangeError.
func (c *Coordinator) Redeem(ctx context.Context, code string, prior State) State {
	exchange, err := c.api.ExchangeCode(ctx, code)
	if err != nil {
		c.logger.Warn("diagnostic code exchange failed", zap.Error(err))
		return State{
			Customer: prior.Customer,
			Staff:    prior.Staff,
			Phase:    PhaseExchangeError,
			Error:    client.Message(err),
		}
	}
	customer, staff := exchange.Customer, exchange.Staff
	c.logger.Info("diagnostic session established",
		zap.Int64("customer_id", customer.ID),
		zap.Int64("staff_id", staff.ID))
	return authenticated(&customer, &staff)
}

// MaybeHandle runs Claim and, when it hands over a code, Redeem.
func (c *Coordinator) MaybeHandle(ctx context.Context, bar AddressBar, prior State) (State, Outcome) {
	code, outcome := c.Claim(bar)
	if outcome != OutcomeHandled {
		return prior, outcome
	}
	return c.Redeem(ctx, code, prior), OutcomeHandled
}
