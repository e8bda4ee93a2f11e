package domain

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// EventType is the vital event an application records.
// Invariant: the value must be one of the supported events.
//
// Usage: construct via ParseEventType at trust boundaries; direct casting
// bypasses validation.
type EventType string

const (
	EventBirth EventType = "birth"
	EventDeath EventType = "death"
)

// ParseEventType accepts the event name case-insensitively.
func ParseEventType(s string) (EventType, error) {
	switch EventType(strings.ToLower(strings.TrimSpace(s))) {
	case EventBirth:
		return EventBirth, nil
	case EventDeath:
		return EventDeath, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "event is required")
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported event: "+s)
	}
}

// IsValid reports whether e is a supported event.
func (e EventType) IsValid() bool {
	return e == EventBirth || e == EventDeath
}

func (e EventType) String() string {
	return string(e)
}
