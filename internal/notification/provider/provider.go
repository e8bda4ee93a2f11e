// Package provider delivers rendered SMS messages. The log provider is for
// development; the HTTP provider posts to an SMS gateway.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	NameLog  = "log"
	NameHTTP = "http"
)

// LogProvider writes messages to the logger instead of sending them.
type LogProvider struct {
	logger *slog.Logger
}

func NewLogProvider(logger *slog.Logger) *LogProvider {
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(ctx context.Context, msisdn, message string) error {
	p.logger.InfoContext(ctx, "sms",
		"msisdn", msisdn,
		"message", message,
	)
	return nil
}

// Config selects and configures a provider.
type Config struct {
	Name     string
	URL      string
	User     string
	Password string
	From     string
	Timeout  time.Duration
}

// Sender is what every provider implements.
type Sender interface {
	Send(ctx context.Context, msisdn, message string) error
}

// New builds the provider named by cfg.Name.
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	switch cfg.Name {
	case "", NameLog:
		return NewLogProvider(logger), nil
	case NameHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("sms provider %q requires a url", cfg.Name)
		}
		return NewHTTPProvider(cfg.URL, cfg.User, cfg.Password, cfg.From, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Name)
	}
}
