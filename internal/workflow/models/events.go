// Package models holds the workflow event names and a minimal view of the
// FHIR bundles the workflow passes around.
package models

import (
	"strings"

	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
)

// Event names a workflow step that may notify the informant.
type Event string

const (
	EventBirthNewDeclaration Event = "BIRTH_NEW_DEC"
	EventBirthMarkRegistered Event = "BIRTH_MARK_REG"
	EventDeathNewDeclaration Event = "DEATH_NEW_DEC"
	EventDeathMarkRegistered Event = "DEATH_MARK_REG"
)

// ParseEvent accepts an event name case-insensitively.
func ParseEvent(raw string) (Event, error) {
	e := Event(strings.ToUpper(strings.TrimSpace(raw)))
	switch e {
	case EventBirthNewDeclaration, EventBirthMarkRegistered, EventDeathNewDeclaration, EventDeathMarkRegistered:
		return e, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidInput, "event is required")
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unknown workflow event: "+raw)
}

// IsNewDeclaration reports whether e creates a declaration that needs a
// tracking id.
func (e Event) IsNewDeclaration() bool {
	return e == EventBirthNewDeclaration || e == EventDeathNewDeclaration
}

// VitalEvent is the birth or death e concerns.
func (e Event) VitalEvent() id.EventType {
	if e == EventDeathNewDeclaration || e == EventDeathMarkRegistered {
		return id.EventDeath
	}
	return id.EventBirth
}

// EventRequest carries the bundle a workflow step produced and the phone
// number to notify.
type EventRequest struct {
	Bundle *Bundle `json:"bundle" validate:"required"`
	Msisdn string  `json:"msisdn" validate:"omitempty,max=20"`
}

func (r *EventRequest) Normalize() {
	r.Msisdn = strings.TrimSpace(r.Msisdn)
}

// EventResponse returns the bundle, with any tracking id assigned.
type EventResponse struct {
	Bundle     *Bundle `json:"bundle"`
	TrackingID string  `json:"trackingId,omitempty"`
	Notified   bool    `json:"notified"`
}
