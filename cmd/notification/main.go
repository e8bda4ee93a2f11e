package main

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	httpapi "opencrvs/internal/http"
	jwttoken "opencrvs/internal/jwt_token"
	"opencrvs/internal/notification/handler"
	"opencrvs/internal/notification/provider"
	"opencrvs/internal/notification/service"
	"opencrvs/internal/platform/config"
	"opencrvs/internal/platform/httpserver"
	"opencrvs/internal/platform/logger"
	"opencrvs/internal/platform/metrics"
	"opencrvs/pkg/platform/audit/publisher"
	auditmemory "opencrvs/pkg/platform/audit/store/memory"
)

// main runs the SMS notification service. It only accepts tokens the auth
// service issued for the notification audience.
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

	publicKey, err := verificationKey(cfg.Auth)
	if err != nil {
		return err
	}
	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(nil, publicKey, cfg.Auth.Issuer, cfg.Auth.NotificationAudience),
	)

	sms, err := provider.New(provider.Config{
		Name:     cfg.Notification.Provider,
		URL:      cfg.Notification.ProviderURL,
		User:     cfg.Notification.ProviderUser,
		Password: cfg.Notification.ProviderPassword,
		From:     cfg.Notification.ProviderFrom,
		Timeout:  cfg.Notification.Timeout,
	}, log)
	if err != nil {
		return err
	}
	templates, err := service.ParseTemplates(nil)
	if err != nil {
		return err
	}
	auditor := publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(log))
	notifications := service.New(sms, templates,
		service.WithAuditor(auditor),
		service.WithLogger(log),
	)

	router := httpapi.NewRouter(nil, handler.New(notifications, log, metrics.New(), validator))
	srv := httpserver.New(cfg.Server.NotificationAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting notification service", "addr", cfg.Server.NotificationAddr, "provider", cfg.Notification.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func verificationKey(cfg config.AuthConfig) (*rsa.PublicKey, error) {
	switch {
	case cfg.PublicKeyPath != "":
		return jwttoken.LoadPublicKey(cfg.PublicKeyPath)
	case cfg.PrivateKeyPath != "":
		key, err := jwttoken.LoadPrivateKey(cfg.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		return &key.PublicKey, nil
	default:
		return nil, errors.New("notification service requires CERT_PUBLIC_KEY_PATH")
	}
}
