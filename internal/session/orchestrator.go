package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/diagnostic-login/internal/client"
)

// Orchestrator owns the session state of one application root.
type Orchestrator struct {
	api         AuthAPI
	portal      client.Portal
	bar         AddressBar
	gate        *TabGate
	restorer    *Restorer
	coordinator *Coordinator
	logger      *zap.Logger

	mu          sync.Mutex
	state       State
	subscribers map[int]func(State)
	nextSub     int
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	gate   *TabGate
	guard  *ExchangeGuard
	logger *zap.Logger
}

// WithGate overrides the portal's default gate.
func WithGate(gate *TabGate) Option {
	return func(o *options) { o.gate = gate }
}

// WithExchangeGuard overrides DefaultExchangeGuard.
func WithExchangeGuard(guard *ExchangeGuard) Option {
	return func(o *options) { o.guard = guard }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewOrchestrator builds the orchestrator for portal. The customer portal
// defaults to a persistent gate and redeems entry codes; the intranet
// defaults to a tab-scoped gate and ignores codes.
func NewOrchestrator(api AuthAPI, portal client.Portal, bar AddressBar, opts ...Option) *Orchestrator {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gate == nil {
		mode := ModePersistent
		if portal == client.PortalIntranet {
			mode = ModeTabScoped
		}
		o.gate = NewTabGate(mode, nil)
	}
	logger := o.logger.With(zap.String("portal", portal.String()))

	orch := &Orchestrator{
		api:         api,
		portal:      portal,
		bar:         bar,
		gate:        o.gate,
		restorer:    NewRestorer(api, portal, logger),
		logger:      logger,
		state:       State{Phase: PhaseInitializing},
		subscribers: make(map[int]func(State)),
	}
	if portal == client.PortalCustomer {
		orch.coordinator = NewCoordinator(api, o.guard, logger)
	}
	return orch
}

// Init runs page-load initialization and returns the resulting state. It
// tolerates being invoked more than once: an invocation that finds another
// one redeeming a code returns the current state untouched.
func (o *Orchestrator) Init(ctx context.Context) State {
	if o.coordinator != nil {
		code, outcome := o.coordinator.Claim(o.bar)
		switch outcome {
		case OutcomeDuplicate:
			return o.State()
		case OutcomeHandled:
			prior := o.update(func(s State) State {
				s.Phase = PhaseExchangingCode
				s.Error = ""
				return s
			})
			next := o.coordinator.Redeem(ctx, code, prior)
			return o.set(next)
		}
	}

	if !o.gate.AllowRestore() {
		o.logger.Debug("no tab marker; skipping restore")
		return o.set(unauthenticated())
	}
	return o.set(o.restorer.Restore(ctx))
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Login authenticates explicitly. On failure the state is left untouched.
func (o *Orchestrator) Login(ctx context.Context, username, password string) (State, error) {
	identity, err := o.api.Login(ctx, username, password)
	if err != nil {
		return o.State(), err
	}
	o.gate.MarkLoggedIn()
	return o.set(authenticated(&identity, nil)), nil
}

// Logout ends the session. Local state and the tab marker are cleared even
// when the server call fails; that error is returned for reporting.
func (o *Orchestrator) Logout(ctx context.Context) error {
	err := o.api.Logout(ctx)
	if err != nil {
		o.logger.Warn("logout request failed", zap.Error(err))
	}
	o.gate.Clear()
	o.set(unauthenticated())
	return err
}

// DismissExchangeError leaves the exchange error screen for the login
// screen. The code is not retried.
func (o *Orchestrator) DismissExchangeError() State {
	if o.State().Phase != PhaseExchangeError {
		return o.State()
	}
	return o.update(func(s State) State {
		if s.Phase != PhaseExchangeError {
			return s
		}
		return unauthenticated()
	})
}

// Subscribe registers fn for every state change and returns a func that
// removes it. fn runs synchronously on the goroutine that changed the state.
func (o *Orchestrator) Subscribe(fn func(State)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subscribers, id)
	}
}

func (o *Orchestrator) set(next State) State {
	return o.update(func(State) State { return next })
}

func (o *Orchestrator) update(fn func(State) State) State {
	o.mu.Lock()
	o.state = fn(o.state)
	next := o.state
	subs := make([]func(State), 0, len(o.subscribers))
	for _, sub := range o.subscribers {
		subs = append(subs, sub)
	}
	o.mu.Unlock()

	o.logger.Debug("session state", zap.Stringer("phase", next.Phase))
	for _, sub := range subs {
		sub(next)
	}
	return next
}
