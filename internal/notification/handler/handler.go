package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opencrvs/internal/notification/models"
	"opencrvs/internal/platform/metrics"
	"opencrvs/internal/platform/middleware"
	"opencrvs/pkg/platform/httputil"
)

// Service defines the notification operations exposed over HTTP.
type Service interface {
	SendSMS(ctx context.Context, req models.SMSRequest) error
	SendDeclaration(ctx context.Context, kind models.Kind, req models.DeclarationSMSRequest) error
	SendRegistration(ctx context.Context, kind models.Kind, req models.RegistrationSMSRequest) error
}

// Handler serves the notification endpoints. Every route requires a bearer
// token issued by the auth service for the notification audience.
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

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(smsRouter chi.Router) {
		smsRouter.Use(middleware.Recovery(h.logger))
		smsRouter.Use(middleware.RequestID)
		smsRouter.Use(middleware.Logger(h.logger))
		smsRouter.Use(middleware.ClientMetadata)
		smsRouter.Use(middleware.Timeout(30 * time.Second))
		smsRouter.Use(middleware.ContentTypeJSON)
		smsRouter.Use(middleware.LatencyMiddleware(h.metrics))
		smsRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		smsRouter.Post(models.KindRaw.Path(), h.handleSMS)
		for _, kind := range []models.Kind{models.KindBirthDeclaration, models.KindDeathDeclaration} {
			smsRouter.Post(kind.Path(), h.handleDeclaration(kind))
		}
		for _, kind := range []models.Kind{models.KindBirthRegistration, models.KindDeathRegistration} {
			smsRouter.Post(kind.Path(), h.handleRegistration(kind))
		}
	})
}

func (h *Handler) handleSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SMSRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.respond(w, ctx, models.KindRaw, h.service.SendSMS(ctx, *req))
}

func (h *Handler) handleDeclaration(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[models.DeclarationSMSRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		h.respond(w, ctx, kind, h.service.SendDeclaration(ctx, kind, *req))
	}
}

func (h *Handler) handleRegistration(kind models.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := middleware.GetRequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[models.RegistrationSMSRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		h.respond(w, ctx, kind, h.service.SendRegistration(ctx, kind, *req))
	}
}

func (h *Handler) respond(w http.ResponseWriter, ctx context.Context, kind models.Kind, err error) {
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to send notification",
			"kind", kind,
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SendResponse{Status: "sent"})
}
