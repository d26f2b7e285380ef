package events

import (
	"time"

	"github.com/google/uuid"
)

// Session lifecycle event types published by the session service and the
// navigation guard, consumed by the audit recorder.
const (
	EventSessionSignedIn     = "session.signed_in"
	EventSessionSignedOut    = "session.signed_out"
	EventSessionSignInFailed = "session.sign_in_failed"
	EventNavigationDenied    = "session.navigation_denied"
)

// NewSessionEvent builds a session lifecycle event with a fresh ID and
// timestamp. Data keys are free-form; the audit recorder picks out
// user_id/username/role when present.
func NewSessionEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}
