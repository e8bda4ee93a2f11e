package service

//go:generate mockgen -source=service.go -destination=mocks/notification-mocks.go -package=mocks Provider,AuditPublisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"opencrvs/internal/notification/models"
	"opencrvs/internal/notification/service/mocks"
	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/platform/audit/publisher"
	auditmemory "opencrvs/pkg/platform/audit/store/memory"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

const msisdn = "+447789778865"

type NotificationSuite struct {
	suite.Suite
	ctx      context.Context
	provider *mocks.MockProvider
	audits   *auditmemory.InMemoryStore
	svc      *Service
}

func TestNotificationSuite(t *testing.T) {
	suite.Run(t, new(NotificationSuite))
}

func (s *NotificationSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.ctx = requestcontext.WithUserID(context.Background(), id.UserID("auth"))
	s.provider = mocks.NewMockProvider(ctrl)
	s.audits = auditmemory.NewInMemoryStore()

	templates, err := ParseTemplates(nil)
	s.Require().NoError(err)
	s.svc = New(s.provider, templates,
		WithAuditor(publisher.NewPublisher(s.audits)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }),
	)
}

func (s *NotificationSuite) actions() []string {
	events, err := s.audits.ListByUser(s.ctx, "auth")
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func (s *NotificationSuite) TestSendSMSVerbatim() {
	s.provider.EXPECT().Send(gomock.Any(), msisdn, "123456").Return(nil)

	s.Require().NoError(s.svc.SendSMS(s.ctx, models.SMSRequest{Msisdn: msisdn, Message: "123456"}))
	s.Equal([]string{string(audit.EventNotificationSent)}, s.actions())
}

func (s *NotificationSuite) TestSendDeclarationRendersTrackingID() {
	s.provider.EXPECT().Send(gomock.Any(), msisdn, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, message string) error {
			s.Contains(message, "Anne Smith")
			s.Contains(message, "B5WGYJE")
			s.Contains(message, "Birth declaration")
			return nil
		})

	err := s.svc.SendDeclaration(s.ctx, models.KindBirthDeclaration, models.DeclarationSMSRequest{
		TrackingID: "B5WGYJE",
		Msisdn:     msisdn,
		Name:       "Anne Smith",
	})
	s.Require().NoError(err)
}

func (s *NotificationSuite) TestSendRegistration() {
	s.provider.EXPECT().Send(gomock.Any(), msisdn, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, message string) error {
			s.Contains(message, "Death of John Doe has been registered")
			return nil
		})

	err := s.svc.SendRegistration(s.ctx, models.KindDeathRegistration, models.RegistrationSMSRequest{
		Msisdn: msisdn,
		Name:   "John Doe",
	})
	s.Require().NoError(err)
}

func (s *NotificationSuite) TestKindMismatchIsBadRequest() {
	err := s.svc.SendDeclaration(s.ctx, models.KindBirthRegistration, models.DeclarationSMSRequest{Msisdn: msisdn})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

	err = s.svc.SendRegistration(s.ctx, models.KindRaw, models.RegistrationSMSRequest{Msisdn: msisdn})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *NotificationSuite) TestProviderUnavailable() {
	s.provider.EXPECT().Send(gomock.Any(), msisdn, "hi").
		Return(fmt.Errorf("gateway: %w", sentinel.ErrUnavailable))

	err := s.svc.SendSMS(s.ctx, models.SMSRequest{Msisdn: msisdn, Message: "hi"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal([]string{string(audit.EventNotificationDropped)}, s.actions())
}

func (s *NotificationSuite) TestProviderRejection() {
	s.provider.EXPECT().Send(gomock.Any(), msisdn, "hi").Return(errors.New("rejected"))

	err := s.svc.SendSMS(s.ctx, models.SMSRequest{Msisdn: msisdn, Message: "hi"})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *NotificationSuite) TestAuditFailureDoesNotFailSend() {
	ctrl := gomock.NewController(s.T())
	auditor := mocks.NewMockAuditPublisher(ctrl)
	auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))
	s.provider.EXPECT().Send(gomock.Any(), msisdn, "hi").Return(nil)

	templates, err := ParseTemplates(nil)
	s.Require().NoError(err)
	svc := New(s.provider, templates, WithAuditor(auditor), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.NoError(svc.SendSMS(s.ctx, models.SMSRequest{Msisdn: msisdn, Message: "hi"}))
}

func TestParseTemplates(t *testing.T) {
	tmpl, err := ParseTemplates(map[models.Kind]string{
		models.KindBirthRegistration: "Registered: {{.Name}}",
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Render(models.KindBirthRegistration, models.TemplateData{Name: "Ada"})
	if err != nil || got != "Registered: Ada" {
		t.Fatalf("got %q, %v", got, err)
	}

	if _, err := ParseTemplates(map[models.Kind]string{models.KindRaw: "{{.Name}}"}); err == nil {
		t.Fatal("expected error for raw kind override")
	}
	if _, err := ParseTemplates(map[models.Kind]string{models.KindBirthDeclaration: "{{.Name"}); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := tmpl.Render(models.KindRaw, models.TemplateData{}); err == nil {
		t.Fatal("expected error for kind without template")
	}
}
