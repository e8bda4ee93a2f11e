package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	apphandler "opencrvs/internal/application/handler"
	appmetrics "opencrvs/internal/application/metrics"
	appservice "opencrvs/internal/application/service"
	appstore "opencrvs/internal/application/store"
	"opencrvs/internal/gateway"
	httpapi "opencrvs/internal/http"
	jwttoken "opencrvs/internal/jwt_token"
	"opencrvs/internal/kv"
	notification "opencrvs/internal/notification/client"
	"opencrvs/internal/platform/config"
	"opencrvs/internal/platform/httpserver"
	"opencrvs/internal/platform/logger"
	"opencrvs/internal/platform/metrics"
	platformredis "opencrvs/internal/platform/redis"
	"opencrvs/internal/ratelimit"
	verifhandler "opencrvs/internal/verification/handler"
	verifservice "opencrvs/internal/verification/service"
	verifstore "opencrvs/internal/verification/store"
	wfhandler "opencrvs/internal/workflow/handler"
	wfservice "opencrvs/internal/workflow/service"
	"opencrvs/pkg/platform/audit/publisher"
	auditkafka "opencrvs/pkg/platform/audit/store/kafka"
	auditmemory "opencrvs/pkg/platform/audit/store/memory"
	"opencrvs/pkg/platform/circuit"
	"opencrvs/pkg/secrets"
)

// main wires the application registry, verification and workflow APIs onto
// one server. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeCloser, err := kv.Open(ctx, &cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storeCloser.Close()

	key, err := signingKey(cfg.Auth, log)
	if err != nil {
		return err
	}
	tokens := jwttoken.NewJWTService(key, nil, cfg.Auth.Issuer, cfg.Auth.GatewayAudience)
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	auditor, closeAudit, err := newAuditor(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closeAudit()

	httpMetrics := metrics.New()

	gw := gateway.New(cfg.Gateway.URL, cfg.Gateway.Timeout,
		gateway.WithLogger(log),
		gateway.WithBreaker(circuit.New("gateway")),
	)
	applications := appservice.New(appstore.NewRegistries(store), gw,
		appservice.WithAuditor(auditor),
		appservice.WithMetrics(appmetrics.New()),
		appservice.WithLogger(log),
	)

	notifier := notification.New(cfg.Notification.URL, cfg.Notification.Timeout,
		notification.WithServiceToken(tokens, "auth", cfg.Auth.NotificationAudience, cfg.Auth.ServiceTokenTTL),
	)
	verification := verifservice.New(verifstore.New(store), secrets.NewHasher(cfg.Auth.BcryptCost), notifier, tokens,
		verifservice.Config{
			Expiry:        cfg.Auth.SMSCodeExpiry,
			MaxAttempts:   cfg.Auth.MaxCodeAttempts,
			TokenAudience: cfg.Auth.GatewayAudience,
			TokenScope:    cfg.Auth.UserScope,
			TokenTTL:      cfg.Auth.TokenTTL,
		},
		verifservice.WithAuditor(auditor),
		verifservice.WithLogger(log),
	)

	checks := map[string]httpapi.HealthCheck{}
	limitStore, closeLimits, err := rateLimitStore(ctx, cfg.Redis, checks)
	if err != nil {
		return err
	}
	defer closeLimits()
	sendLimiter := ratelimit.NewLimiter(limitStore, "verification", cfg.RateLimit.VerificationLimit, cfg.RateLimit.VerificationWindow)
	verifyLimiter := ratelimit.NewLimiter(limitStore, "verification-check", cfg.RateLimit.VerifyLimit, cfg.RateLimit.VerificationWindow)

	workflow := wfservice.New(notifier,
		wfservice.WithAuditor(auditor),
		wfservice.WithLogger(log),
	)

	router := httpapi.NewRouter(checks,
		apphandler.New(applications, log, httpMetrics, validator),
		verifhandler.New(verification, log, httpMetrics, sendLimiter, verifyLimiter),
		wfhandler.New(workflow, log, httpMetrics, validator),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting opencrvs server", "addr", cfg.Server.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down opencrvs server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// signingKey loads the configured RSA key. Without one a throwaway key is
// generated, which only suits local development.
func signingKey(cfg config.AuthConfig, log *slog.Logger) (*rsa.PrivateKey, error) {
	if cfg.PrivateKeyPath != "" {
		return jwttoken.LoadPrivateKey(cfg.PrivateKeyPath)
	}
	log.Warn("no signing key configured, generating an ephemeral key")
	privatePEM, _, err := jwttoken.GenerateKeyPair(2048)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
}

// newAuditor keeps events in memory and, when brokers are configured, also
// streams them to Kafka from a background worker.
func newAuditor(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (*publisher.Publisher, func(), error) {
	opts := []publisher.Option{publisher.WithLogger(log)}
	var sink *auditkafka.Sink
	if len(cfg.Brokers) > 0 {
		var err error
		sink, err = auditkafka.New(cfg.Brokers, cfg.ClientID, cfg.Topic)
		if err != nil {
			return nil, nil, err
		}
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := sink.EnsureTopic(ensureCtx, 3); err != nil {
			log.Warn("failed to ensure audit topic", "topic", cfg.Topic, "error", err)
		}
		opts = append(opts, publisher.WithSink(sink), publisher.WithAsyncBuffer(1024))
	}
	p := publisher.NewPublisher(auditmemory.NewInMemoryStore(), opts...)
	return p, func() {
		p.Close()
		if sink != nil {
			_ = sink.Close()
		}
	}, nil
}

// rateLimitStore shares counters through Redis when it is configured so
// every replica sees the same limits.
func rateLimitStore(ctx context.Context, cfg config.RedisConfig, checks map[string]httpapi.HealthCheck) (ratelimit.Store, func(), error) {
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		return ratelimit.NewInMemoryStore(), func() {}, nil
	}
	checks["redis"] = client.Health
	return ratelimit.NewRedisStore(client.Client, ratelimit.DefaultRedisPrefix), func() { _ = client.Close() }, nil
}
