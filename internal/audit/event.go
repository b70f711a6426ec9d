// Package audit records append-only operational events. Writes are
// fire-and-forget: a failure to persist an event is never surfaced to the
// operation that triggered it.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the closed enumeration of audited event types.
type EventKind string

const (
	UserAuthorized          EventKind = "USER_AUTHORIZED"
	AuthorizationFailed     EventKind = "AUTHORIZATION_FAILED"
	SessionRejected         EventKind = "SESSION_REJECTED"
	CredentialRefreshed     EventKind = "CREDENTIAL_REFRESHED"
	CredentialRefreshFailed EventKind = "CREDENTIAL_REFRESH_FAILED"
	ReauthorizationRequired EventKind = "REAUTHORIZATION_REQUIRED"
	ProviderCall            EventKind = "PROVIDER_CALL"
	AIGeneration            EventKind = "AI_GENERATION"
	AccountDeauthorized     EventKind = "ACCOUNT_DEAUTHORIZED"
)

// Severity represents how alarming an event is to an operator.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Event is immutable once recorded. UserID is empty for pre-auth events.
type Event struct {
	ID        string                 `json:"id"`
	Kind      EventKind              `json:"kind"`
	Severity  Severity               `json:"severity"`
	UserID    string                 `json:"user_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a generated ID and timestamp.
func NewEvent(kind EventKind) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Severity:  SeverityInfo,
		Timestamp: time.Now().UTC(),
	}
}

// WithUserID sets the acting user.
func (e *Event) WithUserID(userID string) *Event {
	e.UserID = userID
	return e
}

// WithSeverity sets the severity.
func (e *Event) WithSeverity(severity Severity) *Event {
	e.Severity = severity
	return e
}

// WithPayload attaches a structured payload.
func (e *Event) WithPayload(payload map[string]interface{}) *Event {
	e.Payload = payload
	return e
}

// WithField adds one payload field.
func (e *Event) WithField(key string, value interface{}) *Event {
	if e.Payload == nil {
		e.Payload = make(map[string]interface{})
	}
	e.Payload[key] = value
	return e
}
