package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"opencrvs/internal/platform/metrics"
	"opencrvs/internal/platform/middleware"
	"opencrvs/internal/ratelimit"
	"opencrvs/internal/verification/models"
	dErrors "opencrvs/pkg/domain-errors"
	"opencrvs/pkg/platform/httputil"
)

// Service defines the verification code operations.
type Service interface {
	Start(ctx context.Context, mobile string) (string, error)
	Verify(ctx context.Context, nonce, code string) (string, error)
}

// Handler serves the SMS verification endpoints. They are unauthenticated;
// code requests and code checks are rate limited per client IP, each with
// its own limiter.
type Handler struct {
	logger        *slog.Logger
	service       Service
	metrics       *metrics.Metrics
	sendLimiter   *ratelimit.Limiter
	verifyLimiter *ratelimit.Limiter
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, sendLimiter, verifyLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:        logger,
		service:       service,
		metrics:       metrics,
		sendLimiter:   sendLimiter,
		verifyLimiter: verifyLimiter,
	}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(verificationRouter chi.Router) {
		verificationRouter.Use(middleware.Recovery(h.logger))
		verificationRouter.Use(middleware.RequestID)
		verificationRouter.Use(middleware.Logger(h.logger))
		verificationRouter.Use(middleware.ClientMetadata)
		verificationRouter.Use(middleware.Timeout(30 * time.Second))
		verificationRouter.Use(middleware.ContentTypeJSON)
		verificationRouter.Use(middleware.LatencyMiddleware(h.metrics))

		verificationRouter.With(ratelimit.Middleware(h.sendLimiter, h.logger)).
			Post("/auth/verification-codes", h.handleSendCode)
		verificationRouter.With(ratelimit.Middleware(h.verifyLimiter, h.logger)).
			Post("/auth/verification-codes/verify", h.handleVerifyCode)
	})
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SendCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	nonce, err := h.service.Start(ctx, req.Mobile)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start verification",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.SendCodeResponse{Nonce: nonce})
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Verify(ctx, req.Nonce, req.Code)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.WarnContext(ctx, "verification code rejected",
				"request_id", requestID,
				"error", err,
			)
		} else {
			h.logger.ErrorContext(ctx, "failed to verify code",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.VerifyCodeResponse{Token: token})
}
