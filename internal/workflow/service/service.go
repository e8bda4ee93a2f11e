package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	notification "opencrvs/internal/notification/models"
	"opencrvs/internal/workflow/models"
	dErrors "opencrvs/pkg/domain-errors"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/requestcontext"
)

var notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opencrvs_workflow_notifications_total",
	Help: "Workflow event notifications by event and outcome",
}, []string{"event", "outcome"})

// NotificationClient posts templated messages to the notification service.
type NotificationClient interface {
	SendDeclaration(ctx context.Context, kind notification.Kind, req notification.DeclarationSMSRequest) error
	SendRegistration(ctx context.Context, kind notification.Kind, req notification.RegistrationSMSRequest) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service assigns tracking ids and notifies informants as declarations move
// through the workflow.
type Service struct {
	notifier NotificationClient
	auditor  AuditPublisher
	logger   *slog.Logger
	now      func() time.Time
	newID    func(event models.Event) (string, error)
}

type Option func(*Service)

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTrackingIDs replaces the tracking id generator.
func WithTrackingIDs(gen func(event models.Event) (string, error)) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func New(notifier NotificationClient, opts ...Option) *Service {
	s := &Service{
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
		newID: func(event models.Event) (string, error) {
			return GenerateTrackingID(event.VitalEvent())
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process handles one workflow step. The bundle must describe the same vital
// event as event. A new declaration without a tracking id gets one, then the informant is notified when a number is given.
// Notification failures never fail the step.
func (s *Service) Process(ctx context.Context, event models.Event, req models.EventRequest) (models.EventResponse, error) {
	bundle := req.Bundle
	vital, err := models.EventType(bundle)
	if err != nil {
		return models.EventResponse{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid FHIR bundle")
	}
	if vital != event.VitalEvent() {
		return models.EventResponse{}, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("%s event posted with a %s bundle", event, vital))
	}

	trackingID, ok := models.TrackingID(bundle)
	if !ok && event.IsNewDeclaration() {
		generated, err := s.newID(event)
		if err != nil {
			return models.EventResponse{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate tracking id")
		}
		if err := models.SetTrackingID(bundle, event.VitalEvent(), generated); err != nil {
			return models.EventResponse{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to assign tracking id")
		}
		trackingID = generated
		s.emit(ctx, audit.EventTrackingIDAssigned, trackingID, string(event))
	}

	notified := false
	if req.Msisdn != "" {
		notified = s.SendEventNotification(ctx, bundle, event, req.Msisdn, "")
	}
	return models.EventResponse{Bundle: bundle, TrackingID: trackingID, Notified: notified}, nil
}

// SendEventNotification sends the SMS matching event to msisdn. A non-empty
// authToken is forwarded in place of the caller's. Errors are logged and
// dropped; the result reports whether the message was accepted.
func (s *Service) SendEventNotification(ctx context.Context, bundle *models.Bundle, event models.Event, msisdn, authToken string) bool {
	if authToken != "" {
		ctx = requestcontext.WithBearerToken(ctx, authToken)
	}
	name, _ := models.InformantName(bundle)

	var err error
	switch event {
	case models.EventBirthNewDeclaration:
		err = s.sendDeclaration(ctx, bundle, notification.KindBirthDeclaration, msisdn, name)
	case models.EventBirthMarkRegistered:
		err = s.notifier.SendRegistration(ctx, notification.KindBirthRegistration, notification.RegistrationSMSRequest{Msisdn: msisdn, Name: name})
	case models.EventDeathNewDeclaration:
		err = s.sendDeclaration(ctx, bundle, notification.KindDeathDeclaration, msisdn, name)
	case models.EventDeathMarkRegistered:
		err = s.notifier.SendRegistration(ctx, notification.KindDeathRegistration, notification.RegistrationSMSRequest{Msisdn: msisdn, Name: name})
	default:
		return false
	}

	if err != nil {
		notificationsSent.WithLabelValues(string(event), "dropped").Inc()
		s.logger.ErrorContext(ctx, "unable to send notification",
			"event", event,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, audit.EventNotificationDropped, "", err.Error())
		return false
	}
	notificationsSent.WithLabelValues(string(event), "sent").Inc()
	return true
}

func (s *Service) sendDeclaration(ctx context.Context, bundle *models.Bundle, kind notification.Kind, msisdn, name string) error {
	trackingID, ok := models.TrackingID(bundle)
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "bundle has no tracking id")
	}
	return s.notifier.SendDeclaration(ctx, kind, notification.DeclarationSMSRequest{
		TrackingID: trackingID,
		Msisdn:     msisdn,
		Name:       name,
	})
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		Action:    string(action),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Timestamp: s.now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
