package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"opencrvs/internal/notification/models"
	dErrors "opencrvs/pkg/domain-errors"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

var messagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opencrvs_notification_messages_total",
	Help: "SMS messages handed to the provider by kind and outcome",
}, []string{"kind", "outcome"})

// Provider delivers a message to a phone number.
type Provider interface {
	Send(ctx context.Context, msisdn, message string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service renders notification templates and hands messages to the
// provider.
type Service struct {
	provider  Provider
	templates *Templates
	auditor   AuditPublisher
	logger    *slog.Logger
	now       func() time.Time
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

func New(provider Provider, templates *Templates, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		templates: templates,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendSMS sends message unchanged.
func (s *Service) SendSMS(ctx context.Context, req models.SMSRequest) error {
	return s.deliver(ctx, models.KindRaw, req.Msisdn, req.Message)
}

// SendDeclaration tells the informant their declaration was received and
// gives them its tracking id.
func (s *Service) SendDeclaration(ctx context.Context, kind models.Kind, req models.DeclarationSMSRequest) error {
	if !kind.IsDeclaration() {
		return dErrors.New(dErrors.CodeBadRequest, "not a declaration notification: "+string(kind))
	}
	return s.render(ctx, kind, req.Msisdn, models.TemplateData{Name: req.Name, TrackingID: req.TrackingID})
}

// SendRegistration tells the informant the event was registered.
func (s *Service) SendRegistration(ctx context.Context, kind models.Kind, req models.RegistrationSMSRequest) error {
	if kind != models.KindBirthRegistration && kind != models.KindDeathRegistration {
		return dErrors.New(dErrors.CodeBadRequest, "not a registration notification: "+string(kind))
	}
	return s.render(ctx, kind, req.Msisdn, models.TemplateData{Name: req.Name})
}

func (s *Service) render(ctx context.Context, kind models.Kind, msisdn string, data models.TemplateData) error {
	message, err := s.templates.Render(kind, data)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to render notification")
	}
	return s.deliver(ctx, kind, msisdn, message)
}

func (s *Service) deliver(ctx context.Context, kind models.Kind, msisdn, message string) error {
	if err := s.provider.Send(ctx, msisdn, message); err != nil {
		messagesSent.WithLabelValues(string(kind), "failed").Inc()
		s.logger.ErrorContext(ctx, "sms provider failed",
			"kind", kind,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, kind, audit.EventNotificationDropped, err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "sms provider unavailable")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send sms")
	}
	messagesSent.WithLabelValues(string(kind), "sent").Inc()
	s.emit(ctx, kind, audit.EventNotificationSent, "")
	return nil
}

func (s *Service) emit(ctx context.Context, kind models.Kind, action audit.AuditEvent, reason string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		UserID:    requestcontext.UserID(ctx),
		Action:    string(action),
		Subject:   string(kind),
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
