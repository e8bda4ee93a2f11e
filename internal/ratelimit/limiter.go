package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"opencrvs/pkg/platform/httputil"
	"opencrvs/pkg/requestcontext"
)

// Store counts hits per key within a window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter applies one limit and window to a class of requests.
type Limiter struct {
	store  Store
	class  string
	limit  int
	window time.Duration
}

// NewLimiter returns a limiter for class. A non-positive limit or window
// disables it.
func NewLimiter(store Store, class string, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, class: class, limit: limit, window: window}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.store != nil && l.limit > 0 && l.window > 0
}

// Check records a hit for key.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	if !l.enabled() || key == "" {
		return &Result{Allowed: true, Limit: l.limitOrZero(), Remaining: l.limitOrZero()}, nil
	}
	return l.store.Allow(ctx, l.class+":"+key, l.limit, l.window)
}

func (l *Limiter) limitOrZero() int {
	if l == nil {
		return 0
	}
	return l.limit
}

// Middleware limits requests per client IP. Store failures let the request
// through.
func Middleware(l *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.enabled() {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, err := l.Check(ctx, ip)
			if err != nil {
				observe(l.class, "error")
				logger.ErrorContext(ctx, "failed to check rate limit",
					"error", err,
					"class", l.class,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				observe(l.class, "blocked")
				logger.WarnContext(ctx, "rate limit exceeded",
					"class", l.class,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, &ExceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests from this IP address. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			observe(l.class, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
