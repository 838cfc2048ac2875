package session

import "sync/atomic"

// GateMode selects whether silent restoration needs a tab marker.
type GateMode int

const (
	// ModePersistent always attempts restoration. Customer sessions survive
	// tab and window churn.
	ModePersistent GateMode = iota
	// ModeTabScoped restores only when this tab logged in explicitly. A new
	// tab never inherits a session, even with valid cookies.
	ModeTabScoped
)

// MarkerStore holds the tab marker. Implementations must not share the
// marker between tabs.
type MarkerStore interface {
	Present() bool
	Set()
	Clear()
}

// TabMarker is an in-memory MarkerStore living as long as the process, which
// is the lifetime of one tab.
type TabMarker struct {
	set atomic.Bool
}

func (m *TabMarker) Present() bool { return m.set.Load() }
func (m *TabMarker) Set()          { m.set.Store(true) }
func (m *TabMarker) Clear()        { m.set.Store(false) }

// TabGate decides whether a page load may restore a session silently.
type TabGate struct {
	mode   GateMode
	marker MarkerStore
}

// NewTabGate returns a gate. A nil marker gets a fresh TabMarker.
func NewTabGate(mode GateMode, marker MarkerStore) *TabGate {
	if marker == nil {
		marker = &TabMarker{}
	}
	return &TabGate{mode: mode, marker: marker}
}

// Mode returns the gate mode.
func (g *TabGate) Mode() GateMode {
	return g.mode
}

// AllowRestore reports whether restoration may be attempted.
func (g *TabGate) AllowRestore() bool {
	return g.mode == ModePersistent || g.marker.Present()
}

// MarkLoggedIn records an explicit login in this tab. Silent restoration
// never calls it.
func (g *TabGate) MarkLoggedIn() {
	g.marker.Set()
}

// Clear drops the tab marker.
func (g *TabGate) Clear() {
	g.marker.Clear()
}
