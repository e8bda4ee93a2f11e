package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"opencrvs/pkg/platform/sentinel"
)

// HTTPProvider posts a form encoded message to an SMS gateway using basic
// auth.
type HTTPProvider struct {
	endpoint   string
	user       string
	password   string
	from       string
	httpClient *http.Client
}

func NewHTTPProvider(endpoint, user, password, from string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint:   endpoint,
		user:       user,
		password:   password,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Send(ctx context.Context, msisdn, message string) error {
	form := url.Values{}
	form.Set("to", msisdn)
	form.Set("text", message)
	if p.from != "" {
		form.Set("from", p.from)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.user != "" {
		req.SetBasicAuth(p.user, p.password)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("sms gateway returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode >= 300:
		return fmt.Errorf("sms gateway rejected message with status %d", resp.StatusCode)
	}
	return nil
}
