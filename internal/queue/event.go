// Package queue defines the security-event payloads exchanged over the
// message broker, plus the publisher and the background consumer.
package queue

// Event types published on the auth.events queue.
const (
	EventSignup       = "signup"
	EventSignin       = "signin"
	EventRefresh      = "refresh"
	EventLogout       = "logout"
	EventAccessDenied = "access_denied"
)

// SecurityEvent is published after every credential-lifecycle operation.
// It carries enough for downstream consumers to audit or alert without
// querying the primary database.  No token material is ever included.
type SecurityEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
