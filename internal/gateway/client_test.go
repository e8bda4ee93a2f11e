package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrvs/internal/application/models"
	id "opencrvs/pkg/domain"
	"opencrvs/pkg/platform/circuit"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

func newGateway(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 5*time.Second), srv
}

func TestSubmitApplication(t *testing.T) {
	var gotAuth string
	var gotReq graphQLRequest
	client, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"data":{"createApplication":{"compositionId":"comp-1","trackingId":"B4X9Q2M","registrationStatus":"DECLARED"}}}`))
	})

	app := models.New(id.EventBirth, time.Now())
	app.Data = models.Data{"child": {"firstName": "Anne"}}
	ctx := requestcontext.WithBearerToken(context.Background(), "token-123")

	res, err := client.SubmitApplication(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, SubmitResult{CompositionID: "comp-1", TrackingID: "B4X9Q2M", Status: models.StatusDeclared}, res)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.True(t, strings.HasPrefix(gotReq.Query, "mutation submitApplication"))
	assert.Equal(t, "birth", gotReq.Variables["event"])
}

func TestSubmitApplicationGraphQLErrors(t *testing.T) {
	client, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"child.firstName is required"}]}`))
	})

	_, err := client.SubmitApplication(context.Background(), models.New(id.EventBirth, time.Now()))
	var gqlErr *Error
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"child.firstName is required"}, gqlErr.Messages)
}

func TestFetchApplication(t *testing.T) {
	client, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Variables["id"] == "missing" {
			_, _ = w.Write([]byte(`{"data":{"fetchApplication":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"fetchApplication":{"data":{"child":{"firstName":"Anne"}}}}}`))
	})

	data, err := client.FetchApplication(context.Background(), "comp-1")
	require.NoError(t, err)
	assert.Equal(t, "Anne", data["child"]["firstName"])

	_, err = client.FetchApplication(context.Background(), "missing")
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestServerErrorsOpenTheBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, time.Second, WithBreaker(circuit.New("gateway", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))

	for range 2 {
		_, err := client.FetchApplication(context.Background(), "comp-1")
		require.ErrorIs(t, err, sentinel.ErrUnavailable)
	}
	_, err := client.FetchApplication(context.Background(), "comp-1")
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, 2, calls, "open breaker short-circuits the third call")
}

func TestUnreachableGateway(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).SubmitApplication(context.Background(), models.New(id.EventDeath, time.Now()))
	require.ErrorIs(t, err, sentinel.ErrUnavailable)
}
