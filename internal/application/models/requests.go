package models

import (
	"strings"

	dErrors "opencrvs/pkg/domain-errors"
)

// CreateRequest starts a new draft.
type CreateRequest struct {
	Event string `json:"event" validate:"required,oneof=birth death"`
}

func (r *CreateRequest) Normalize() {
	r.Event = strings.ToLower(strings.TrimSpace(r.Event))
}

// ModifyRequest merges draft data into an application.
type ModifyRequest struct {
	Data Data `json:"data" validate:"required"`
}

func (r *ModifyRequest) Validate() error {
	for section := range r.Data {
		if strings.TrimSpace(section) == "" {
			return dErrors.New(dErrors.CodeValidation, "section names must not be empty")
		}
	}
	return nil
}

// EventRequest applies one transition table event.
type EventRequest struct {
	Event string `json:"event" validate:"required"`
}

func (r *EventRequest) Normalize() {
	r.Event = strings.ToUpper(strings.TrimSpace(r.Event))
}

func (r *EventRequest) Validate() error {
	_, err := ParseEvent(r.Event)
	return err
}

// SelectRequest chooses the application shown in the detail view.
type SelectRequest struct {
	ID string `json:"id" validate:"required"`
}

// WorklistResponse is the body of GET /applications.
type WorklistResponse struct {
	Worklist     Worklist      `json:"worklist"`
	Applications []Application `json:"applications"`
}

// EventResponse reports the outcome of applying one event.
type EventResponse struct {
	Application Application `json:"application"`
	Changed     bool        `json:"changed"`
}
