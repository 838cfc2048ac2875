package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// fakeAPI is an in-memory AuthAPI. Cookies are modelled as the identity the
// next Me call returns.
type fakeAPI struct {
	mu        sync.Mutex
	me        *domain.Identity
	refreshed *domain.Identity
	staff     *domain.Identity
	meErr     error
	infoErr   error
	logoutErr error
	exchanges map[string]*client.Exchange
	users     map[string]domain.Identity

	meCalls       atomic.Int32
	exchangeCalls atomic.Int32
	infoCalls     atomic.Int32
	// exchangeStarted, when set, is closed on the first ExchangeCode call
	// and the call then blocks until release is closed.
	exchangeStarted chan struct{}
	release         chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		exchanges: map[string]*client.Exchange{},
		users:     map[string]domain.Identity{},
	}
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.users[username+":"+password]
	if !ok {
		return domain.Identity{}, &client.APIError{Op: "login", Status: 401, Detail: "Invalid credentials.", Kind: client.ErrRejected}
	}
	f.me = &id
	return id, nil
}

func (f *fakeAPI) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.me, f.staff = nil, nil
	return f.logoutErr
}

func (f *fakeAPI) Me(context.Context) (*domain.Identity, error) {
	f.meCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.me, f.meErr
}

func (f *fakeAPI) Refresh(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshed == nil {
		return false
	}
	f.me, f.refreshed = f.refreshed, nil
	return true
}

func (f *fakeAPI) ExchangeCode(_ context.Context, code string) (*client.Exchange, error) {
	if f.exchangeCalls.Add(1) == 1 && f.exchangeStarted != nil {
		close(f.exchangeStarted)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.exchanges[code]
	if !ok {
		return nil, &client.APIError{Op: "exchange code", Status: 400, Detail: "Invalid or expired exchange code.", Kind: client.ErrExchangeRejected}
	}
	delete(f.exchanges, code)
	customer, staff := ex.Customer, ex.Staff
	f.me, f.staff = &customer, &staff
	return ex, nil
}

func (f *fakeAPI) DiagnosticInfo(context.Context) (*domain.Identity, error) {
	f.infoCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staff, f.infoErr
}

var (
	alice = domain.Identity{ID: 5, Username: "alice"}
	bob   = domain.Identity{ID: 2, Username: "bob", IsStaff: true}
)
