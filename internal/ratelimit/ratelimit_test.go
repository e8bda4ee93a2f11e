package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrvs/pkg/requestcontext"
)

func TestInMemoryStoreSlidingWindow(t *testing.T) {
	store := NewInMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 3 {
		res, err := store.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 60, res.RetryAfter)

	now = now.Add(61 * time.Second)
	res, err = store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.NoError(t, store.Reset(ctx, "k"))
	res, err = store.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Remaining)
}

func TestInMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	_, err := store.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	res, err := store.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, errors.New("redis down")
}
func (failingStore) Reset(context.Context, string) error { return nil }

func serve(l *Limiter, ip string) *httptest.ResponseRecorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Middleware(l, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/verification-codes", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "", ""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	t.Run("blocks after limit", func(t *testing.T) {
		l := NewLimiter(NewInMemoryStore(), "blocks-test", 2, time.Minute)
		assert.Equal(t, http.StatusOK, serve(l, "10.0.0.1").Code)
		rec := serve(l, "10.0.0.1")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

		rec = serve(l, "10.0.0.1")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

		assert.Equal(t, http.StatusOK, serve(l, "10.0.0.2").Code)

		assert.Equal(t, 3.0, promtest.ToFloat64(checksTotal.WithLabelValues("blocks-test", "allowed")))
		assert.Equal(t, 1.0, promtest.ToFloat64(checksTotal.WithLabelValues("blocks-test", "blocked")))
	})

	t.Run("disabled limiter passes through", func(t *testing.T) {
		l := NewLimiter(NewInMemoryStore(), "verification", 0, time.Minute)
		for range 5 {
			assert.Equal(t, http.StatusOK, serve(l, "10.0.0.1").Code)
		}
		assert.Equal(t, http.StatusOK, serve(nil, "10.0.0.1").Code)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		l := NewLimiter(failingStore{}, "verification", 1, time.Minute)
		assert.Equal(t, http.StatusOK, serve(l, "10.0.0.1").Code)
		assert.Equal(t, http.StatusOK, serve(l, "10.0.0.1").Code)
	})
}
