package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diagnostic-login/internal/client"
)

const entry = "http://localhost:3002/?code=abc123"

func newCustomer(api *fakeAPI, rawURL string) (*Orchestrator, *Location) {
	loc := NewLocation(rawURL)
	return NewOrchestrator(api, client.PortalCustomer, loc, WithExchangeGuard(&ExchangeGuard{})), loc
}

func TestNoCodeNoCookies(t *testing.T) {
	api := newFakeAPI()
	orch, _ := newCustomer(api, "http://localhost:3002/")

	assert.Equal(t, PhaseInitializing, orch.State().Phase)
	state := orch.Init(context.Background())
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Nil(t, state.Customer)
	assert.Zero(t, api.exchangeCalls.Load())
}

func TestExchangeEstablishesDiagnosticSession(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	orch, loc := newCustomer(api, entry)

	state := orch.Init(context.Background())
	require.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, "alice", state.Customer.Username)
	require.NotNil(t, state.Staff)
	assert.Equal(t, "bob", state.Staff.Username)
	assert.True(t, state.Diagnostic())
	assert.NotContains(t, loc.URL(), "code")
	assert.Zero(t, api.meCalls.Load())
}

func TestDuplicateInitExchangesOnce(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	orch, loc := newCustomer(api, entry)
	ctx := context.Background()

	first := orch.Init(ctx)
	second := orch.Init(ctx)

	assert.Equal(t, int32(1), api.exchangeCalls.Load())
	assert.Zero(t, api.meCalls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, first, orch.State())
	assert.NotContains(t, loc.URL(), "code")
}

func TestOverlappingInitDoesNotRace(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	api.exchangeStarted = make(chan struct{})
	api.release = make(chan struct{})
	orch, loc := newCustomer(api, entry)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		orch.Init(ctx)
	}()

	<-api.exchangeStarted
	assert.NotContains(t, loc.URL(), "code")
	during := orch.Init(ctx)
	assert.Equal(t, PhaseExchangingCode, during.Phase)
	close(api.release)
	wg.Wait()

	final := orch.State()
	assert.Equal(t, PhaseAuthenticated, final.Phase)
	assert.Equal(t, "bob", final.Staff.Username)
	assert.Equal(t, int32(1), api.exchangeCalls.Load())
	assert.Zero(t, api.meCalls.Load())
}

func TestConcurrentInitCallsExchangeOnce(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	orch, loc := newCustomer(api, entry)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			orch.Init(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), api.exchangeCalls.Load())
	assert.Equal(t, PhaseAuthenticated, orch.State().Phase)
	assert.NotContains(t, loc.URL(), "code")
}

func TestRejectedCodeKeepsPriorIdentities(t *testing.T) {
	api := newFakeAPI()
	orch, loc := newCustomer(api, "http://localhost:3002/dashboard?code=used&tab=2#top")
	orch.set(authenticated(&alice, nil))

	state := orch.Init(context.Background())
	assert.Equal(t, PhaseExchangeError, state.Phase)
	assert.Equal(t, "Invalid or expired exchange code.", state.Error)
	require.NotNil(t, state.Customer)
	assert.Equal(t, "alice", state.Customer.Username)
	assert.Nil(t, state.Staff)
	assert.Equal(t, "http://localhost:3002/dashboard?tab=2#top", loc.URL())

	dismissed := orch.DismissExchangeError()
	assert.Equal(t, PhaseUnauthenticated, dismissed.Phase)
	assert.Nil(t, dismissed.Customer)
	assert.Empty(t, dismissed.Error)
}

func TestCustomerRestoreDropsStaff(t *testing.T) {
	api := newFakeAPI()
	staff := bob
	api.me = &staff
	orch, _ := newCustomer(api, "http://localhost:3002/")

	state := orch.Init(context.Background())
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Empty(t, state.Error)
	assert.Zero(t, api.infoCalls.Load())
}

func TestCustomerRestoreFindsCompanion(t *testing.T) {
	api := newFakeAPI()
	customer, staff := alice, bob
	api.me, api.staff = &customer, &staff
	orch, _ := newCustomer(api, "http://localhost:3002/")

	state := orch.Init(context.Background())
	require.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, "bob", state.Staff.Username)

	api.infoErr = errors.New("down")
	state = orch.Init(context.Background())
	require.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Nil(t, state.Staff)
}

func TestRestoreRefreshesOnce(t *testing.T) {
	api := newFakeAPI()
	customer := alice
	api.refreshed = &customer
	orch, _ := newCustomer(api, "http://localhost:3002/")

	state := orch.Init(context.Background())
	require.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, int32(2), api.meCalls.Load())
	assert.False(t, state.Diagnostic())
}

func TestRestoreAbsorbsTransportErrors(t *testing.T) {
	api := newFakeAPI()
	api.meErr = &client.APIError{Op: "me", Status: 502, Kind: client.ErrTransport}
	orch, _ := newCustomer(api, "http://localhost:3002/")

	state := orch.Init(context.Background())
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Empty(t, state.Error)
}

func TestIntranetRequiresTabMarker(t *testing.T) {
	api := newFakeAPI()
	staff := bob
	api.me = &staff
	orch := NewOrchestrator(api, client.PortalIntranet, NewLocation("http://localhost:3001/"))

	state := orch.Init(context.Background())
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Zero(t, api.meCalls.Load())

	me, err := api.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bob", me.Username)
}

func TestIntranetRestoresAfterExplicitLogin(t *testing.T) {
	api := newFakeAPI()
	api.users["bob:pw"] = bob
	gate := NewTabGate(ModeTabScoped, nil)
	orch := NewOrchestrator(api, client.PortalIntranet, NewLocation("http://localhost:3001/"), WithGate(gate))
	ctx := context.Background()

	_, err := orch.Login(ctx, "bob", "bad")
	assert.ErrorIs(t, err, client.ErrRejected)
	assert.Equal(t, PhaseInitializing, orch.State().Phase)

	state, err := orch.Login(ctx, "bob", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bob", state.Customer.Username)
	assert.Nil(t, state.Staff)

	state = orch.Init(ctx)
	require.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, "bob", state.Customer.Username)

	require.NoError(t, orch.Logout(ctx))
	assert.False(t, gate.AllowRestore())
	assert.Equal(t, PhaseUnauthenticated, orch.State().Phase)
}

func TestIntranetIgnoresCodes(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	loc := NewLocation("http://localhost:3001/?code=abc123")
	orch := NewOrchestrator(api, client.PortalIntranet, loc, WithExchangeGuard(&ExchangeGuard{}))

	assert.Equal(t, PhaseUnauthenticated, orch.Init(context.Background()).Phase)
	assert.Zero(t, api.exchangeCalls.Load())
}

func TestLogoutClearsStateOnFailure(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	api.logoutErr = &client.APIError{Op: "logout", Status: 500, Kind: client.ErrTransport}
	orch, _ := newCustomer(api, entry)
	ctx := context.Background()
	require.Equal(t, PhaseAuthenticated, orch.Init(ctx).Phase)

	err := orch.Logout(ctx)
	assert.ErrorIs(t, err, client.ErrTransport)
	state := orch.State()
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Nil(t, state.Customer)
	assert.Nil(t, state.Staff)
}

func TestSubscribe(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	orch, _ := newCustomer(api, entry)

	var phases []Phase
	unsubscribe := orch.Subscribe(func(s State) { phases = append(phases, s.Phase) })
	orch.Init(context.Background())
	unsubscribe()
	_ = orch.Logout(context.Background())

	assert.Equal(t, []Phase{PhaseExchangingCode, PhaseAuthenticated}, phases)
}

func TestStaffOnlyWithCustomer(t *testing.T) {
	state := authenticated(nil, &bob)
	assert.Equal(t, PhaseUnauthenticated, state.Phase)
	assert.Nil(t, state.Staff)
	assert.False(t, state.Diagnostic())
}

func TestMaybeHandle(t *testing.T) {
	api := newFakeAPI()
	api.exchanges["abc123"] = &client.Exchange{Customer: alice, Staff: bob}
	coord := NewCoordinator(api, &ExchangeGuard{}, nil)
	ctx := context.Background()

	state, outcome := coord.MaybeHandle(ctx, NewLocation("http://localhost:3002/"), State{Phase: PhaseInitializing})
	assert.Equal(t, OutcomeNoCode, outcome)
	assert.Equal(t, PhaseInitializing, state.Phase)

	loc := NewLocation(entry)
	state, outcome = coord.MaybeHandle(ctx, loc, State{Phase: PhaseInitializing})
	assert.Equal(t, OutcomeHandled, outcome)
	assert.Equal(t, PhaseAuthenticated, state.Phase)
	assert.Equal(t, "http://localhost:3002/", loc.URL())

	prior := state
	again := NewLocation(entry)
	state, outcome = coord.MaybeHandle(ctx, again, prior)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, prior, state)
	assert.Equal(t, "http://localhost:3002/", again.URL())
	assert.Equal(t, int32(1), api.exchangeCalls.Load())
}
