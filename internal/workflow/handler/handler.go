package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opencrvs/internal/platform/metrics"
	"opencrvs/internal/platform/middleware"
	"opencrvs/internal/workflow/models"
	dErrors "opencrvs/pkg/domain-errors"
	"opencrvs/pkg/platform/httputil"
)

// workflowScopes are the token scopes allowed to drive a record through the
// workflow.
var workflowScopes = []string{"declare", "validate", "register"}

// Service processes workflow steps.
type Service interface {
	Process(ctx context.Context, event models.Event, req models.EventRequest) (models.EventResponse, error)
}

type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the workflow routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(workflowRouter chi.Router) {
		workflowRouter.Use(middleware.Recovery(h.logger))
		workflowRouter.Use(middleware.RequestID)
		workflowRouter.Use(middleware.Logger(h.logger))
		workflowRouter.Use(middleware.ClientMetadata)
		workflowRouter.Use(middleware.Timeout(30 * time.Second))
		workflowRouter.Use(middleware.ContentTypeJSON)
		workflowRouter.Use(middleware.LatencyMiddleware(h.metrics))
		workflowRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		workflowRouter.Use(middleware.RequireScope(h.logger, workflowScopes...))

		workflowRouter.Post("/workflow/events/{event}", h.handleEvent)
	})
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	event, err := models.ParseEvent(chi.URLParam(r, "event"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.EventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Process(ctx, event, *req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "rejected workflow event",
				"event", event,
				"request_id", requestID,
				"error", err,
			)
		} else {
			h.logger.ErrorContext(ctx, "failed to process workflow event",
				"event", event,
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
