package handler

//go:generate mockgen -source=handler.go -destination=mocks/workflow-mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"opencrvs/internal/platform/middleware"
	"opencrvs/internal/workflow/handler/mocks"
	"opencrvs/internal/workflow/models"
	dErrors "opencrvs/pkg/domain-errors"
	"opencrvs/pkg/testutil"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	switch token {
	case "good-token":
		return &middleware.JWTClaims{Subject: "practitioner-1", Scope: []string{"declare"}}, nil
	case "sysadmin-token":
		return &middleware.JWTClaims{Subject: "sysadmin-1", Scope: []string{"sysadmin"}}, nil
	default:
		return nil, errors.New("invalid token")
	}
}

const bundleBody = `{"bundle":{"resourceType":"Bundle","entry":[{"resource":{"resourceType":"Task"}}]},"msisdn":"+447789778865"}`

func setup(t *testing.T) (http.Handler, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, stubValidator{}).Register(r)
	return r, svc
}

func post(t *testing.T, h http.Handler, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.Serve(h, testutil.WithBearer(testutil.JSONRequest(t, http.MethodPost, path, body), token))
}

func TestHandleEvent(t *testing.T) {
	t.Run("requires auth", func(t *testing.T) {
		h, _ := setup(t)
		testutil.AssertError(t, post(t, h, "/workflow/events/BIRTH_NEW_DEC", "", bundleBody), http.StatusUnauthorized, "unauthorized")
	})

	t.Run("requires a workflow scope", func(t *testing.T) {
		h, _ := setup(t)
		testutil.AssertError(t, post(t, h, "/workflow/events/BIRTH_NEW_DEC", "sysadmin-token", bundleBody), http.StatusForbidden, "forbidden")
	})

	t.Run("returns processed bundle", func(t *testing.T) {
		h, svc := setup(t)
		svc.EXPECT().Process(gomock.Any(), models.EventBirthNewDeclaration, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ models.Event, req models.EventRequest) (models.EventResponse, error) {
				assert.Equal(t, "+447789778865", req.Msisdn)
				return models.EventResponse{Bundle: req.Bundle, TrackingID: "B5WGYJE", Notified: true}, nil
			})

		rec := post(t, h, "/workflow/events/birth_new_dec", "good-token", bundleBody)
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := testutil.DecodeJSON[models.EventResponse](t, rec)
		assert.Equal(t, "B5WGYJE", resp.TrackingID)
		assert.True(t, resp.Notified)
		assert.Len(t, resp.Bundle.Entry, 1)
	})

	t.Run("unknown event", func(t *testing.T) {
		h, _ := setup(t)
		testutil.AssertError(t, post(t, h, "/workflow/events/BIRTH_CERTIFIED", "good-token", bundleBody), http.StatusBadRequest, "invalid_input")
	})

	t.Run("missing bundle", func(t *testing.T) {
		h, _ := setup(t)
		testutil.AssertError(t, post(t, h, "/workflow/events/DEATH_NEW_DEC", "good-token", `{"msisdn":"+1"}`), http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed body", func(t *testing.T) {
		h, _ := setup(t)
		testutil.AssertError(t, post(t, h, "/workflow/events/DEATH_NEW_DEC", "good-token", `{"bundle":`), http.StatusBadRequest, "bad_request")
	})

	t.Run("invalid bundle", func(t *testing.T) {
		h, svc := setup(t)
		svc.EXPECT().Process(gomock.Any(), models.EventDeathMarkRegistered, gomock.Any()).
			Return(models.EventResponse{}, dErrors.New(dErrors.CodeBadRequest, "invalid FHIR bundle"))
		testutil.AssertError(t, post(t, h, "/workflow/events/DEATH_MARK_REG", "good-token", bundleBody), http.StatusBadRequest, "bad_request")
	})
}
