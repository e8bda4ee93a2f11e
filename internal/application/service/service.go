package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"opencrvs/internal/application/metrics"
	"opencrvs/internal/application/models"
	"opencrvs/internal/application/store"
	"opencrvs/internal/gateway"
	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

var tracer = otel.Tracer("opencrvs.application")

// Gateway is the remote registration API.
type Gateway interface {
	SubmitApplication(ctx context.Context, app models.Application) (gateway.SubmitResult, error)
	FetchApplication(ctx context.Context, compositionID string) (models.Data, error)
}

// AuditPublisher records application activity.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service coordinates registries, the transition table and the gateway.
type Service struct {
	registries *store.Registries
	gateway    Gateway
	auditor    AuditPublisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
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

func New(registries *store.Registries, gw Gateway, opts ...Option) *Service {
	s := &Service{
		registries: registries,
		gateway:    gw,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) registry(ctx context.Context, userID id.UserID) (*store.Registry, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing user")
	}
	reg, err := s.registries.For(ctx, userID)
	if err != nil {
		return nil, s.storageError(ctx, err)
	}
	return reg, nil
}

// Create starts an empty draft for event.
func (s *Service) Create(ctx context.Context, userID id.UserID, event id.EventType) (models.Application, error) {
	if !event.IsValid() {
		return models.Application{}, dErrors.New(dErrors.CodeValidation, "event must be birth or death")
	}
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	app := models.New(event, s.now())
	if err := reg.Upsert(ctx, app); err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.emit(ctx, userID, audit.EventApplicationCreated, app.ID, event.String())
	return app, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	app, err := reg.Get(appID)
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	return app, nil
}

// Save upserts a complete application. Statuses are owned by the transition
// table: a new application always starts as a draft, and an existing one
// keeps its stored event, statuses and server ids. Sending a different status is an
// invalid_state error.
func (s *Service) Save(ctx context.Context, userID id.UserID, app models.Application) (models.Application, error) {
	if err := app.Validate(); err != nil {
		return models.Application{}, err
	}
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	if app.Data == nil {
		app.Data = models.Data{}
	}

	saved, err := reg.Update(ctx, app.ID, func(a *models.Application) (bool, error) {
		if a.SubmissionStatus == models.StatusSubmitting {
			return false, dErrors.New(dErrors.CodeInvalidState, "application is being submitted")
		}
		if err := keepsState(app, a.State()); err != nil {
			return false, err
		}
		app.Event = a.Event
		app.SubmissionStatus = a.SubmissionStatus
		app.DownloadStatus = a.DownloadStatus
		app.CompositionID = a.CompositionID
		app.TrackingID = a.TrackingID
		app.SavedOn = a.SavedOn
		app.ModifiedOn = s.now()
		*a = app
		return true, nil
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		if err := keepsState(app, models.State{Submission: models.StatusDraft, Download: models.DownloadNotDownloaded}); err != nil {
			return models.Application{}, err
		}
		fresh := models.New(app.Event, s.now())
		fresh.ID = app.ID
		fresh.Data = app.Data
		if !app.SavedOn.IsZero() {
			fresh.SavedOn = app.SavedOn
		}
		if err := reg.Upsert(ctx, fresh); err != nil {
			return models.Application{}, s.storageError(ctx, err)
		}
		saved, err = fresh, nil
	}
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.emit(ctx, userID, audit.EventApplicationModified, saved.ID, "")
	return saved, nil
}

// keepsState rejects a client copy whose statuses differ from want. Empty
// statuses are accepted.
func keepsState(app models.Application, want models.State) error {
	if app.SubmissionStatus != "" && app.SubmissionStatus != want.Submission {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("submission status is %s; change it with an event", want.Submission))
	}
	if app.DownloadStatus != "" && app.DownloadStatus != want.Download {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("download status is %s; change it with an event", want.Download))
	}
	return nil
}

// Modify merges patch into the draft data.
func (s *Service) Modify(ctx context.Context, userID id.UserID, appID id.ApplicationID, patch models.Data) (models.Application, error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	app, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		if a.SubmissionStatus == models.StatusSubmitting {
			return false, dErrors.New(dErrors.CodeInvalidState, "application is being submitted")
		}
		a.Data = models.MergeData(a.Data, patch)
		a.ModifiedOn = s.now()
		return true, nil
	})
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.emit(ctx, userID, audit.EventApplicationModified, appID, "")
	return app, nil
}

// Remove deletes an application. Unknown ids succeed.
func (s *Service) Remove(ctx context.Context, userID id.UserID, appID id.ApplicationID) error {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := reg.Get(appID); errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err := reg.Remove(ctx, appID); err != nil {
		return s.storageError(ctx, err)
	}
	s.emit(ctx, userID, audit.EventApplicationRemoved, appID, "")
	return nil
}

// Apply runs one table event. changed is false when the pair is not in the
// table; the application is returned unchanged in that case.
func (s *Service) Apply(ctx context.Context, userID id.UserID, appID id.ApplicationID, event models.Event) (app models.Application, changed bool, err error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, false, err
	}
	var fired []models.Event
	app, err = reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		changed = s.step(a, event, &fired)
		return changed, nil
	})
	if err != nil {
		return models.Application{}, false, s.storageError(ctx, err)
	}
	s.countTransitions(fired)
	if changed {
		s.emit(ctx, userID, audit.EventApplicationTransition, appID, string(event))
	}
	return app, changed, nil
}

// step applies event to a and reports whether the state moved. Applied events
// are appended to fired; callers count them once the update is stored.
func (s *Service) step(a *models.Application, event models.Event, fired *[]models.Event) bool {
	next, changed := models.Transition(a.State(), event)
	if changed {
		a.SetState(next)
		a.ModifiedOn = s.now()
		*fired = append(*fired, event)
	}
	return changed
}

func (s *Service) countTransitions(fired []models.Event) {
	for _, event := range fired {
		s.metrics.IncTransition(string(event))
	}
}

// Submit moves a draft or failed application to SUBMITTING, sends it to the
// gateway and records the outcome. A gateway failure leaves it FAILED.
func (s *Service) Submit(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Submit", trace.WithAttributes(
		attribute.String("application.id", appID.String()),
	))
	defer span.End()

	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	var fired []models.Event
	pending, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		if s.step(a, models.EventSubmit, &fired) || s.step(a, models.EventRetrySubmit, &fired) {
			return true, nil
		}
		return false, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("application cannot be submitted while %s", a.SubmissionStatus))
	})
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.countTransitions(fired)

	start := time.Now()
	result, gwErr := s.gateway.SubmitApplication(ctx, pending)
	s.metrics.ObserveGateway("submit", time.Since(start).Seconds())

	if gwErr != nil {
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, "gateway submission failed")
		s.metrics.IncSubmission("failed")
		s.logger.WarnContext(ctx, "application submission failed",
			"application_id", appID.String(),
			"error", gwErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		fired = nil
		if _, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
			return s.step(a, models.EventSubmitFailed, &fired), nil
		}); err != nil {
			return models.Application{}, s.storageError(ctx, err)
		}
		s.countTransitions(fired)
		s.emit(ctx, userID, audit.EventApplicationSubmitError, appID, gwErr.Error())
		return models.Application{}, gatewayError(gwErr, "gateway submission failed")
	}

	fired = nil
	app, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		s.step(a, models.EventSubmitSucceeded, &fired)
		for _, ev := range refinementEvents(result.Status) {
			s.step(a, ev, &fired)
		}
		a.CompositionID = result.CompositionID
		if result.TrackingID != "" {
			a.TrackingID = result.TrackingID
		}
		return true, nil
	})
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.countTransitions(fired)
	span.SetAttributes(attribute.String("application.status", string(app.SubmissionStatus)))
	s.metrics.IncSubmission("succeeded")
	s.emit(ctx, userID, audit.EventApplicationSubmitted, appID, string(app.SubmissionStatus))
	return app, nil
}

// refinementEvents walks SUBMITTED to the status the gateway reported.
func refinementEvents(status models.SubmissionStatus) []models.Event {
	switch status {
	case models.StatusDeclared:
		return []models.Event{models.EventMarkDeclared}
	case models.StatusValidated:
		return []models.Event{models.EventMarkValidated}
	case models.StatusRegistered:
		return []models.Event{models.EventMarkRegistered}
	case models.StatusRejected:
		return []models.Event{models.EventMarkRejected}
	case models.StatusCertified:
		return []models.Event{models.EventMarkRegistered, models.EventMarkCertified}
	}
	return nil
}

// Download fetches the server copy of an acknowledged application and merges
// it over the local data.
func (s *Service) Download(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Download", trace.WithAttributes(
		attribute.String("application.id", appID.String()),
	))
	defer span.End()

	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	var fired []models.Event
	pending, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		if a.CompositionID == "" {
			return false, dErrors.New(dErrors.CodeInvalidState, "application has not been submitted")
		}
		s.step(a, models.EventMakeDownloadable, &fired)
		if s.step(a, models.EventDownload, &fired) || s.step(a, models.EventRetryDownload, &fired) {
			return true, nil
		}
		return false, dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("application cannot be downloaded while %s/%s", a.SubmissionStatus, a.DownloadStatus))
	})
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.countTransitions(fired)

	start := time.Now()
	data, gwErr := s.gateway.FetchApplication(ctx, pending.CompositionID)
	s.metrics.ObserveGateway("download", time.Since(start).Seconds())

	if gwErr != nil {
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, "gateway download failed")
		s.metrics.IncDownload("failed")
		s.logger.WarnContext(ctx, "application download failed",
			"application_id", appID.String(),
			"error", gwErr,
			"request_id", requestcontext.RequestID(ctx),
		)
		fired = nil
		if _, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
			return s.step(a, models.EventDownloadFailed, &fired), nil
		}); err != nil {
			return models.Application{}, s.storageError(ctx, err)
		}
		s.countTransitions(fired)
		s.emit(ctx, userID, audit.EventApplicationDownloadErr, appID, gwErr.Error())
		return models.Application{}, gatewayError(gwErr, "gateway download failed")
	}

	fired = nil
	app, err := reg.Update(ctx, appID, func(a *models.Application) (bool, error) {
		*a = models.MergeDownloaded(*a, data)
		s.step(a, models.EventDownloadSucceeded, &fired)
		return true, nil
	})
	if err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	s.countTransitions(fired)
	s.metrics.IncDownload("succeeded")
	s.emit(ctx, userID, audit.EventApplicationDownloaded, appID, "")
	return app, nil
}

// Worklist returns the applications in the named view, in insertion order.
func (s *Service) Worklist(ctx context.Context, userID id.UserID, list models.Worklist) ([]models.Application, error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return nil, err
	}
	apps := slices.Collect(reg.ListBy(list.Predicate()))
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}

// Select marks the application shown in the detail view.
func (s *Service) Select(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	if err := reg.Select(appID); err != nil {
		return models.Application{}, s.storageError(ctx, err)
	}
	app, _ := reg.Selected()
	return app, nil
}

// Selected returns the selected application.
func (s *Service) Selected(ctx context.Context, userID id.UserID) (models.Application, error) {
	reg, err := s.registry(ctx, userID)
	if err != nil {
		return models.Application{}, err
	}
	app, ok := reg.Selected()
	if !ok {
		return models.Application{}, dErrors.New(dErrors.CodeNotFound, "no application selected")
	}
	return app, nil
}

// storageError translates registry and adapter failures into domain errors.
func (s *Service) storageError(ctx context.Context, err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	s.metrics.IncPersistFailure()
	s.logger.ErrorContext(ctx, "application storage failed",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "application storage unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist applications")
}

func gatewayError(err error, msg string) error {
	var gqlErr *gateway.Error
	switch {
	case errors.As(err, &gqlErr):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, msg+": "+gqlErr.Error())
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}

func (s *Service) emit(ctx context.Context, userID id.UserID, action audit.AuditEvent, appID id.ApplicationID, decision string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		UserID:        userID,
		Action:        string(action),
		ApplicationID: appID.String(),
		Decision:      decision,
		RequestID:     requestcontext.RequestID(ctx),
		ClientIP:      requestcontext.ClientIP(ctx),
		Device:        requestcontext.Device(ctx),
		Timestamp:     s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
