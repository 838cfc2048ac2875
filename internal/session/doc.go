// Package session restores and establishes sessions when an application
// starts. An Orchestrator runs once per page load: it redeems a one-time
// diagnostic code found in the entry URL, or silently restores the session
// from existing cookies when the TabGate allows it, and publishes the
// resulting State.
//
// Initialization is safe under duplicate invocation. The ExchangeGuard is
// set the moment a code is seen and never released, so a second Init racing
// the first makes no network calls and leaves the state alone.
package session
