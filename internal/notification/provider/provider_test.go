package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrvs/pkg/platform/sentinel"
)

func TestHTTPProviderPostsForm(t *testing.T) {
	var got http.Header
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"to":   r.PostForm.Get("to"),
			"text": r.PostForm.Get("text"),
			"from": r.PostForm.Get("from"),
		}
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "crvs", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, "crvs", "secret", "OpenCRVS", time.Second)
	require.NoError(t, p.Send(context.Background(), "+447789778865", "123456"))

	assert.Equal(t, "application/x-www-form-urlencoded", got.Get("Content-Type"))
	assert.Equal(t, map[string]string{"to": "+447789778865", "text": "123456", "from": "OpenCRVS"}, form)
}

func TestHTTPProviderErrors(t *testing.T) {
	t.Run("server error is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewHTTPProvider(srv.URL, "", "", "", time.Second).Send(context.Background(), "+1", "hi")
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("rejection is not retryable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		err := NewHTTPProvider(srv.URL, "", "", "", time.Second).Send(context.Background(), "+1", "hi")
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrUnavailable)
	})
}

func TestNew(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := New(Config{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogProvider{}, p)
	assert.NoError(t, p.Send(context.Background(), "+1", "hello"))

	_, err = New(Config{Name: NameHTTP}, logger)
	assert.Error(t, err)

	_, err = New(Config{Name: "carrier-pigeon"}, logger)
	assert.Error(t, err)
}
