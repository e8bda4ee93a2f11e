// Package client posts SMS requests to the notification service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"opencrvs/internal/notification/models"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

// TokenIssuer signs the service token sent with each request.
type TokenIssuer interface {
	Issue(subject, audience string, scope []string, ttl time.Duration) (string, error)
}

// Client talks to the notification service. With a TokenIssuer it signs a
// short-lived service token per request; without one it forwards the
// caller's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenIssuer
	subject    string
	audience   string
	tokenTTL   time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithServiceToken signs requests as subject for audience.
func WithServiceToken(issuer TokenIssuer, subject, audience string, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.tokens = issuer
		cl.subject = subject
		cl.audience = audience
		if ttl > 0 {
			cl.tokenTTL = ttl
		}
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokenTTL:   time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendSMS sends message to msisdn as is.
func (c *Client) SendSMS(ctx context.Context, msisdn, message string) error {
	return c.post(ctx, models.KindRaw, models.SMSRequest{Msisdn: msisdn, Message: message})
}

// SendDeclaration asks the service to render and send a declaration notice.
func (c *Client) SendDeclaration(ctx context.Context, kind models.Kind, req models.DeclarationSMSRequest) error {
	return c.post(ctx, kind, req)
}

// SendRegistration asks the service to render and send a registration notice.
func (c *Client) SendRegistration(ctx context.Context, kind models.Kind, req models.RegistrationSMSRequest) error {
	return c.post(ctx, kind, req)
}

func (c *Client) post(ctx context.Context, kind models.Kind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding notification request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+kind.Path(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling notification service: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("notification service returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode >= http.StatusBadRequest:
		return fmt.Errorf("notification service rejected %s with status %d", kind, resp.StatusCode)
	}
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return requestcontext.BearerToken(ctx), nil
	}
	token, err := c.tokens.Issue(c.subject, c.audience, []string{"service"}, c.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("signing service token: %w", err)
	}
	return token, nil
}
