package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded          EventType = "login_succeeded"
	EventLoginRejected           EventType = "login_rejected"
	EventDiagnosticCodeIssued    EventType = "diagnostic_code_issued"
	EventDiagnosticCodeExchanged EventType = "diagnostic_code_exchanged"
	EventDiagnosticCodeRejected  EventType = "diagnostic_code_rejected"
	EventLoggedOut               EventType = "logged_out"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IsStaff  bool   `json:"is_staff"`
}

// Event represents an audit-relevant occurrence emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// LoginPayload payload.
type LoginPayload struct {
	Username     string `json:"username"`
	RequireStaff bool   `json:"require_staff"`
	Reason       string `json:"reason,omitempty"`
}

// DiagnosticPayload describes a diagnostic code lifecycle step. The code
// itself is never carried.
type DiagnosticPayload struct {
	CustomerID int64  `json:"customer_id"`
	StaffID    int64  `json:"staff_id"`
	Reason     string `json:"reason,omitempty"`
}
