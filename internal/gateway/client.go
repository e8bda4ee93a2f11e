// Package gateway is the GraphQL-over-HTTP client for the registration
// gateway. Payloads are treated as opaque success or error results.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"opencrvs/internal/application/models"
	"opencrvs/pkg/platform/circuit"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
)

const (
	submitMutation = `mutation submitApplication($event: String!, $details: JSON!) {
  createApplication(event: $event, details: $details) {
    compositionId
    trackingId
    registrationStatus
  }
}`

	fetchQuery = `query fetchApplication($id: ID!) {
  fetchApplication(id: $id) {
    data
  }
}`

	maxResponseBytes = 4 << 20
)

// SubmitResult is what the gateway reports after accepting an application.
type SubmitResult struct {
	CompositionID string
	TrackingID    string
	Status        models.SubmissionStatus
}

// Error carries the messages of a GraphQL errors array.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client posts GraphQL operations to the gateway, forwarding the caller's
// bearer token.
type Client struct {
	url        string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func New(url string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuit.New("gateway"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SubmitApplication sends a draft to the gateway for declaration.
func (c *Client) SubmitApplication(ctx context.Context, app models.Application) (SubmitResult, error) {
	var out struct {
		CreateApplication struct {
			CompositionID      string `json:"compositionId"`
			TrackingID         string `json:"trackingId"`
			RegistrationStatus string `json:"registrationStatus"`
		} `json:"createApplication"`
	}
	err := c.do(ctx, submitMutation, map[string]any{
		"event":   app.Event.String(),
		"details": app.Data,
	}, &out)
	if err != nil {
		return SubmitResult{}, err
	}
	created := out.CreateApplication
	if created.CompositionID == "" {
		return SubmitResult{}, errors.New("gateway returned no composition id")
	}
	return SubmitResult{
		CompositionID: created.CompositionID,
		TrackingID:    created.TrackingID,
		Status:        models.ParseServerStatus(created.RegistrationStatus),
	}, nil
}

// FetchApplication downloads the server copy of a registered application.
func (c *Client) FetchApplication(ctx context.Context, compositionID string) (models.Data, error) {
	var out struct {
		FetchApplication *struct {
			Data models.Data `json:"data"`
		} `json:"fetchApplication"`
	}
	if err := c.do(ctx, fetchQuery, map[string]any{"id": compositionID}, &out); err != nil {
		return nil, err
	}
	if out.FetchApplication == nil {
		return nil, fmt.Errorf("composition %s: %w", compositionID, sentinel.ErrNotFound)
	}
	return out.FetchApplication.Data, nil
}

func (c *Client) do(ctx context.Context, query string, variables map[string]any, into any) error {
	if c.breaker != nil && !c.breaker.Allow() {
		return fmt.Errorf("gateway circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("encoding graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := requestcontext.BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx, err)
		return fmt.Errorf("calling gateway: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.recordFailure(ctx, err)
		return fmt.Errorf("reading gateway response: %w: %w", sentinel.ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		err := fmt.Errorf("gateway returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
		c.recordFailure(ctx, err)
		return err
	}
	c.recordSuccess()

	var envelope graphQLResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding gateway response (status %d): %w", resp.StatusCode, err)
	}
	if len(envelope.Errors) > 0 {
		gqlErr := &Error{}
		for _, e := range envelope.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return gqlErr
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return errors.New("gateway returned no data")
	}
	if err := json.Unmarshal(envelope.Data, into); err != nil {
		return fmt.Errorf("decoding gateway data: %w", err)
	}
	return nil
}

func (c *Client) recordFailure(ctx context.Context, err error) {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "gateway circuit opened",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (c *Client) recordSuccess() {
	if c.breaker == nil {
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.Info("gateway circuit closed")
	}
}
