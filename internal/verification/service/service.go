package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"opencrvs/internal/verification/models"
	id "opencrvs/pkg/domain"
	dErrors "opencrvs/pkg/domain-errors"
	audit "opencrvs/pkg/platform/audit"
	"opencrvs/pkg/platform/sentinel"
	"opencrvs/pkg/requestcontext"
	"opencrvs/pkg/secrets"
)

var (
	codesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "opencrvs_verification_codes_issued_total",
		Help: "Verification codes generated and handed to the SMS sender",
	})
	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opencrvs_verification_checks_total",
		Help: "Verification code checks by outcome",
	}, []string{"outcome"})
)

type CodeStore interface {
	Put(ctx context.Context, nonce string, record models.CodeRecord) error
	Get(ctx context.Context, nonce string) (models.CodeRecord, error)
	Delete(ctx context.Context, nonce string) error
}

// SMSSender delivers the code to the user's phone.
type SMSSender interface {
	SendSMS(ctx context.Context, msisdn, message string) error
}

type TokenIssuer interface {
	Issue(subject, audience string, scope []string, ttl time.Duration) (string, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the verification policy. A non-positive MaxAttempts uses
// models.DefaultMaxAttempts.
type Config struct {
	Expiry        time.Duration
	MaxAttempts   int
	TokenAudience string
	TokenScope    []string
	TokenTTL      time.Duration
}

// Service issues six-digit SMS codes and exchanges them for user tokens.
type Service struct {
	codes   CodeStore
	hasher  *secrets.Hasher
	sender  SMSSender
	tokens  TokenIssuer
	auditor AuditPublisher
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time
}

type Option func(*Service)

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) { s.auditor = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(codes CodeStore, hasher *secrets.Hasher, sender SMSSender, tokens TokenIssuer, cfg Config, opts ...Option) *Service {
	s := &Service{
		codes:  codes,
		hasher: hasher,
		sender: sender,
		tokens: tokens,
		logger: slog.Default(),
		cfg:    cfg,
		now:    time.Now,
	}
	if s.cfg.MaxAttempts <= 0 {
		s.cfg.MaxAttempts = models.DefaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateNonce returns 16 random bytes, base64 encoded.
func GenerateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(models.CodeMax-models.CodeMin+1))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(models.CodeMin+n.Int64(), 10), nil
}

// Generate creates a code for nonce and stores its hash with the time of
// issue. The plain code is returned for sending.
func (s *Service) Generate(ctx context.Context, nonce, mobile string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code")
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash verification code")
	}
	record := models.CodeRecord{
		CodeHash:  hash,
		Mobile:    mobile,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.codes.Put(ctx, nonce, record); err != nil {
		return "", s.storageError(ctx, err)
	}
	codesIssued.Inc()
	return code, nil
}

// Check succeeds when code matches the one stored for nonce and is younger
// than the configured expiry. A wrong code is reported before expiry.
func (s *Service) Check(ctx context.Context, nonce, code string) error {
	_, err := s.check(ctx, nonce, code)
	return err
}

func (s *Service) check(ctx context.Context, nonce, code string) (models.CodeRecord, error) {
	record, err := s.codes.Get(ctx, nonce)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			verifications.WithLabelValues("not_found").Inc()
			return models.CodeRecord{}, models.ErrCodeNotFound
		}
		return models.CodeRecord{}, s.storageError(ctx, err)
	}

	if err := s.hasher.Verify(code, record.CodeHash); err != nil {
		verifications.WithLabelValues("invalid").Inc()
		if errors.Is(err, secrets.ErrMismatch) {
			return record, models.ErrCodeInvalid
		}
		return record, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}

	elapsed := s.now().Sub(time.UnixMilli(record.CreatedAt))
	if elapsed >= s.cfg.Expiry {
		verifications.WithLabelValues("expired").Inc()
		return record, models.ErrCodeExpired
	}
	verifications.WithLabelValues("ok").Inc()
	return record, nil
}

// Delete removes the code stored for nonce.
func (s *Service) Delete(ctx context.Context, nonce string) error {
	if err := s.codes.Delete(ctx, nonce); err != nil {
		return s.storageError(ctx, err)
	}
	return nil
}

// Send delivers code to mobile through the notification service.
func (s *Service) Send(ctx context.Context, mobile, code string) error {
	if err := s.sender.SendSMS(ctx, mobile, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to send verification code",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if errors.Is(err, sentinel.ErrUnavailable) {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "notification service unavailable")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to send verification code")
	}
	return nil
}

// Start issues and sends a fresh code for mobile and returns its nonce.
func (s *Service) Start(ctx context.Context, mobile string) (string, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	code, err := s.Generate(ctx, nonce, mobile)
	if err != nil {
		return "", err
	}
	if err := s.Send(ctx, mobile, code); err != nil {
		// An undeliverable code is useless; drop it.
		if delErr := s.codes.Delete(ctx, nonce); delErr != nil {
			s.logger.WarnContext(ctx, "failed to drop unsent verification code",
				"error", delErr,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return "", err
	}
	s.emit(ctx, mobile, audit.EventVerificationCodeSent, "")
	return nonce, nil
}

// Verify checks code, consumes it and returns a user token whose subject is
// the verified mobile number. Each wrong code is counted against the nonce;
// the code is discarded once MaxAttempts is reached.
func (s *Service) Verify(ctx context.Context, nonce, code string) (string, error) {
	record, err := s.check(ctx, nonce, code)
	if err != nil {
		s.emit(ctx, record.Mobile, audit.EventVerificationFailed, string(dErrors.CodeOf(err)))
		if errors.Is(err, models.ErrCodeInvalid) {
			if countErr := s.countFailure(ctx, nonce, record); countErr != nil {
				return "", countErr
			}
		}
		return "", err
	}
	if err := s.Delete(ctx, nonce); err != nil {
		return "", err
	}
	token, err := s.tokens.Issue(record.Mobile, s.cfg.TokenAudience, s.cfg.TokenScope, s.cfg.TokenTTL)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	s.emit(ctx, record.Mobile, audit.EventVerificationSucceeded, "")
	return token, nil
}

// countFailure records a wrong code, deleting the record on the last allowed
// attempt.
func (s *Service) countFailure(ctx context.Context, nonce string, record models.CodeRecord) error {
	record.Attempts++
	if record.Attempts >= s.cfg.MaxAttempts {
		verifications.WithLabelValues("exhausted").Inc()
		s.logger.WarnContext(ctx, "verification code discarded after repeated failures",
			"attempts", record.Attempts,
			"request_id", requestcontext.RequestID(ctx),
		)
		return s.Delete(ctx, nonce)
	}
	if err := s.codes.Put(ctx, nonce, record); err != nil {
		return s.storageError(ctx, err)
	}
	return nil
}

func (s *Service) storageError(ctx context.Context, err error) error {
	s.logger.ErrorContext(ctx, "verification code storage failed",
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "verification storage unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "verification storage failed")
}

func (s *Service) emit(ctx context.Context, mobile string, action audit.AuditEvent, reason string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, audit.Event{
		UserID:    id.UserID(mobile),
		Action:    string(action),
		Subject:   "verification_code",
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		Device:    requestcontext.Device(ctx),
		Timestamp: s.now(),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
