package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (pingHandler) Register(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

type pongHandler struct{}

func (pongHandler) Register(r chi.Router) {
	r.Group(func(g chi.Router) {
		g.Get("/pong", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		})
	})
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRouterMountsEveryHandler(t *testing.T) {
	r := NewRouter(nil, pingHandler{}, pongHandler{})

	assert.Equal(t, http.StatusTeapot, serve(r, "/ping").Code)
	assert.Equal(t, http.StatusAccepted, serve(r, "/pong").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, "/nope").Code)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := serve(NewRouter(map[string]HealthCheck{"storage": ok}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"storage":"ok"}}`, rec.Body.String())

	rec = serve(NewRouter(map[string]HealthCheck{"storage": ok, "redis": down}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"storage":"ok","redis":"connection refused"}}`, rec.Body.String())

	rec = serve(NewRouter(nil), "/health")
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
