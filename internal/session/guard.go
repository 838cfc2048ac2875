package session

import "sync/atomic"

// ExchangeGuard is a one-shot latch marking that a code exchange has started
// in this process. Once acquired it stays set until Reset.
type ExchangeGuard struct {
	started atomic.Bool
}

// DefaultExchangeGuard is the process-wide guard used by orchestrators that
// are not given one explicitly.
var DefaultExchangeGuard = &ExchangeGuard{}

// TryAcquire sets the guard and reports whether this call was the one that
// set it.
func (g *ExchangeGuard) TryAcquire() bool {
	return g.started.CompareAndSwap(false, true)
}

// Started reports whether an exchange has begun.
func (g *ExchangeGuard) Started() bool {
	return g.started.Load()
}

// Reset clears the guard. Only process bootstrap and tests may call it; a
// torn-down orchestrator must leave it set for any overlapping Init.
func (g *ExchangeGuard) Reset() {
	g.started.Store(false)
}
