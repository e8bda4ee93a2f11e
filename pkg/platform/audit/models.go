// Package audit records structured events about application and
// verification activity. Stores are append-only sinks; the publisher fans
// events out to them.
package audit

import (
	"context"
	"time"

	id "opencrvs/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers registration milestones with legal weight.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers verification and token failures.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine draft activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory `json:"category"`
	Timestamp     time.Time     `json:"timestamp"`
	UserID        id.UserID     `json:"userId,omitempty"`
	Action        string        `json:"action"`
	ApplicationID string        `json:"applicationId,omitempty"`
	Subject       string        `json:"subject,omitempty"`
	Decision      string        `json:"decision,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	RequestID     string        `json:"requestId,omitempty"`
	ClientIP      string        `json:"clientIp,omitempty"`
	Device        string        `json:"device,omitempty"`
}

type AuditEvent string

const (
	// Application registry events
	EventApplicationCreated     AuditEvent = "application_created"
	EventApplicationModified    AuditEvent = "application_modified"
	EventApplicationRemoved     AuditEvent = "application_removed"
	EventApplicationTransition  AuditEvent = "application_transitioned"
	EventApplicationSubmitted   AuditEvent = "application_submitted"
	EventApplicationSubmitError AuditEvent = "application_submit_failed"
	EventApplicationDownloaded  AuditEvent = "application_downloaded"
	EventApplicationDownloadErr AuditEvent = "application_download_failed"

	// Verification and notification events
	EventVerificationCodeSent  AuditEvent = "verification_code_sent"
	EventVerificationSucceeded AuditEvent = "verification_succeeded"
	EventVerificationFailed    AuditEvent = "verification_failed"
	EventNotificationSent      AuditEvent = "notification_sent"
	EventNotificationDropped   AuditEvent = "notification_dropped"
	EventTrackingIDAssigned    AuditEvent = "tracking_id_assigned"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationSubmitted:  CategoryCompliance,
	EventApplicationRemoved:    CategoryCompliance,
	EventTrackingIDAssigned:    CategoryCompliance,
	EventVerificationFailed:    CategorySecurity,
	EventVerificationSucceeded: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink accepts events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can also list what it holds.
type Store interface {
	Sink
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
