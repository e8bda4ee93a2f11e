package handler

//go:generate mockgen -source=handler.go -destination=mocks/notification-mocks.go -package=mocks Service

import (
	"bytes"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	jwttoken "opencrvs/internal/jwt_token"
	"opencrvs/internal/notification/handler/mocks"
	"opencrvs/internal/notification/models"
	dErrors "opencrvs/pkg/domain-errors"
)

const (
	issuer   = "opencrvs:auth-service"
	audience = "opencrvs:notification-user"
)

type NotificationHandlerSuite struct {
	suite.Suite
	key      *rsa.PrivateKey
	otherKey *rsa.PrivateKey
	issuer   *jwttoken.JWTService
	service  *mocks.MockService
	router   http.Handler
}

func TestNotificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(NotificationHandlerSuite))
}

func (s *NotificationHandlerSuite) SetupSuite() {
	s.key = s.generateKey()
	s.otherKey = s.generateKey()
	s.issuer = jwttoken.NewJWTService(s.key, nil, issuer, audience)
}

func (s *NotificationHandlerSuite) generateKey() *rsa.PrivateKey {
	privatePEM, _, err := jwttoken.GenerateKeyPair(2048)
	s.Require().NoError(err)
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	s.Require().NoError(err)
	return key
}

func (s *NotificationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(nil, &s.key.PublicKey, issuer, audience))

	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, validator).Register(r)
	s.router = r
}

func (s *NotificationHandlerSuite) token() string {
	token, err := s.issuer.Issue("auth", audience, []string{"service"}, time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *NotificationHandlerSuite) post(path, token string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

var smsBody = models.SMSRequest{Msisdn: "+447789778865", Message: "test"}

func (s *NotificationHandlerSuite) TestSMSWithValidToken() {
	s.service.EXPECT().SendSMS(gomock.Any(), smsBody).Return(nil)

	rec := s.post("/sms", s.token(), smsBody)
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"sent"}`, rec.Body.String())
}

func (s *NotificationHandlerSuite) TestSMSRejectsBadTokens() {
	sign := func(svc *jwttoken.JWTService, aud string) string {
		token, err := svc.Issue("auth", aud, nil, time.Minute)
		s.Require().NoError(err)
		return token
	}
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "auth",
		Issuer:    issuer,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("test"))
	s.Require().NoError(err)

	cases := map[string]string{
		"missing":         "",
		"malformed":       "not-a-jwt",
		"wrong algorithm": hs512,
		"wrong audience":  sign(s.issuer, "opencrvs:gateway-user"),
		"wrong issuer":    sign(jwttoken.NewJWTService(s.key, nil, "opencrvs:elsewhere", audience), audience),
		"expired":         sign(jwttoken.NewJWTService(s.key, nil, issuer, audience, jwttoken.WithClock(past)), audience),
		"wrong key":       sign(jwttoken.NewJWTService(s.otherKey, nil, issuer, audience), audience),
	}
	for name, token := range cases {
		s.Run(name, func() {
			rec := s.post("/sms", token, smsBody)
			s.Equal(http.StatusUnauthorized, rec.Code)
		})
	}
}

func (s *NotificationHandlerSuite) TestSMSRejectsInvalidBody() {
	s.Equal(http.StatusBadRequest, s.post("/sms", s.token(), map[string]string{"msisdn": "+447789778865"}).Code)
	s.Equal(http.StatusBadRequest, s.post("/sms", s.token(), map[string]string{"message": "hi"}).Code)
}

func (s *NotificationHandlerSuite) TestDeclarationRoutes() {
	for _, kind := range []models.Kind{models.KindBirthDeclaration, models.KindDeathDeclaration} {
		s.Run(string(kind), func() {
			body := models.DeclarationSMSRequest{TrackingID: "b5wgyje", Msisdn: "+447789778865", Name: "Anne"}
			s.service.EXPECT().SendDeclaration(gomock.Any(), kind, models.DeclarationSMSRequest{
				TrackingID: "B5WGYJE",
				Msisdn:     "+447789778865",
				Name:       "Anne",
			}).Return(nil)

			s.Equal(http.StatusOK, s.post(kind.Path(), s.token(), body).Code)
		})
	}

	s.Run("tracking id required", func() {
		rec := s.post(models.KindBirthDeclaration.Path(), s.token(), models.DeclarationSMSRequest{Msisdn: "+447789778865"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *NotificationHandlerSuite) TestRegistrationRoutes() {
	for _, kind := range []models.Kind{models.KindBirthRegistration, models.KindDeathRegistration} {
		s.Run(string(kind), func() {
			body := models.RegistrationSMSRequest{Msisdn: "+447789778865", Name: "Anne"}
			s.service.EXPECT().SendRegistration(gomock.Any(), kind, body).Return(nil)

			s.Equal(http.StatusOK, s.post(kind.Path(), s.token(), body).Code)
		})
	}
}

func (s *NotificationHandlerSuite) TestProviderUnavailable() {
	s.service.EXPECT().SendSMS(gomock.Any(), smsBody).
		Return(dErrors.New(dErrors.CodeUnavailable, "sms provider unavailable"))

	s.Equal(http.StatusServiceUnavailable, s.post("/sms", s.token(), smsBody).Code)
}
