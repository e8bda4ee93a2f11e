package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opencrvs/internal/application/models"
	"opencrvs/internal/platform/metrics"
	"opencrvs/internal/platform/middleware"
	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
	"opencrvs/pkg/platform/httputil"
	"opencrvs/pkg/requestcontext"
)

const maxApplicationBytes = 4 << 20

// Service defines the application operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, userID id.UserID, event id.EventType) (models.Application, error)
	Get(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error)
	Save(ctx context.Context, userID id.UserID, app models.Application) (models.Application, error)
	Modify(ctx context.Context, userID id.UserID, appID id.ApplicationID, patch models.Data) (models.Application, error)
	Remove(ctx context.Context, userID id.UserID, appID id.ApplicationID) error
	Apply(ctx context.Context, userID id.UserID, appID id.ApplicationID, event models.Event) (models.Application, bool, error)
	Submit(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error)
	Download(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error)
	Worklist(ctx context.Context, userID id.UserID, list models.Worklist) ([]models.Application, error)
	Select(ctx context.Context, userID id.UserID, appID id.ApplicationID) (models.Application, error)
	Selected(ctx context.Context, userID id.UserID) (models.Application, error)
}

// Handler serves the application registry endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	timeout      time.Duration
}

// New creates a new application Handler.
func New(
	service Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
		timeout:      30 * time.Second,
	}
}

// Register registers the application routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(appRouter chi.Router) {
		appRouter.Use(middleware.Recovery(h.logger))
		appRouter.Use(middleware.RequestID)
		appRouter.Use(middleware.Logger(h.logger))
		appRouter.Use(middleware.ClientMetadata)
		appRouter.Use(middleware.Timeout(h.timeout))
		appRouter.Use(middleware.ContentTypeJSON)
		appRouter.Use(middleware.LatencyMiddleware(h.metrics))
		appRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		appRouter.Post("/applications", h.handleCreate)
		appRouter.Get("/applications", h.handleWorklist)
		appRouter.Get("/applications/selected", h.handleGetSelected)
		appRouter.Put("/applications/selected", h.handleSelect)
		appRouter.Get("/applications/{id}", h.handleGet)
		appRouter.Put("/applications/{id}", h.handleSave)
		appRouter.Patch("/applications/{id}", h.handleModify)
		appRouter.Delete("/applications/{id}", h.handleRemove)
		appRouter.Post("/applications/{id}/events", h.handleEvent)
		appRouter.Post("/applications/{id}/submit", h.handleSubmit)
		appRouter.Post("/applications/{id}/download", h.handleDownload)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	app, err := h.service.Create(ctx, userID, id.EventType(req.Event))
	if err != nil {
		h.fail(w, ctx, "failed to create application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleWorklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	list, err := models.ParseWorklist(r.URL.Query().Get("worklist"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	apps, err := h.service.Worklist(ctx, userID, list)
	if err != nil {
		h.fail(w, ctx, "failed to list applications", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.WorklistResponse{Worklist: list, Applications: apps})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(ctx, userID, appID)
	if err != nil {
		h.fail(w, ctx, "failed to load application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// handleSave replaces the application; the path id wins over the body's.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}

	var app models.Application
	if err := json.NewDecoder(io.LimitReader(r.Body, maxApplicationBytes)).Decode(&app); err != nil {
		h.logger.WarnContext(ctx, "invalid application body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	app.ID = appID

	saved, err := h.service.Save(ctx, userID, app)
	if err != nil {
		h.fail(w, ctx, "failed to save application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleModify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.ModifyRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	app, err := h.service.Modify(ctx, userID, appID, req.Data)
	if err != nil {
		h.fail(w, ctx, "failed to modify application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(ctx, userID, appID); err != nil {
		h.fail(w, ctx, "failed to remove application", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.EventRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	app, changed, err := h.service.Apply(ctx, userID, appID, models.Event(req.Event))
	if err != nil {
		h.fail(w, ctx, "failed to apply application event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.EventResponse{Application: app, Changed: changed})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}
	app, err := h.service.Submit(ctx, userID, appID)
	if err != nil {
		h.fail(w, ctx, "failed to submit application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, appID, ok := h.requireTarget(w, r)
	if !ok {
		return
	}
	app, err := h.service.Download(ctx, userID, appID)
	if err != nil {
		h.fail(w, ctx, "failed to download application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SelectRequest](w, r, h.logger, ctx, middleware.GetRequestID(ctx))
	if !ok {
		return
	}
	appID, err := id.ParseApplicationID(req.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Select(ctx, userID, appID)
	if err != nil {
		h.fail(w, ctx, "failed to select application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleGetSelected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	app, err := h.service.Selected(ctx, userID)
	if err != nil {
		h.fail(w, ctx, "failed to load selected application", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		// RequireAuth guarantees a user; reaching here means a wiring error.
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) requireTarget(w http.ResponseWriter, r *http.Request) (id.UserID, id.ApplicationID, bool) {
	userID, ok := h.requireUser(w, r.Context())
	if !ok {
		return "", id.ApplicationID{}, false
	}
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", id.ApplicationID{}, false
	}
	return userID, appID, true
}

// fail logs server-side failures at error level and client mistakes at warn.
func (h *Handler) fail(w http.ResponseWriter, ctx context.Context, msg string, err error) {
	status := httputil.StatusFor(dErrors.CodeOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
