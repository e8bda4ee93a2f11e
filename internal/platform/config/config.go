package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration shared by every binary.
// Precedence: defaults, then the YAML file named by OPENCRVS_CONFIG, then
// environment variables.
type Config struct {
	Server       Server             `yaml:"server"`
	Storage      Storage            `yaml:"storage"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Badger       BadgerConfig       `yaml:"badger"`
	Auth         AuthConfig         `yaml:"auth"`
	Notification NotificationConfig `yaml:"notification"`
	Gateway      GatewayConfig      `yaml:"gateway"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr             string        `yaml:"addr"`
	NotificationAddr string        `yaml:"notification_addr"`
	LogLevel         string        `yaml:"log_level"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// Storage selects the key-value backend behind application registries and
// verification codes: memory, redis, badger or postgres.
type Storage struct {
	Driver string `yaml:"driver"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	Table        string `yaml:"table"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type BadgerConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
}

// AuthConfig holds token and verification code settings.
type AuthConfig struct {
	Issuer               string        `yaml:"issuer"`
	PrivateKeyPath       string        `yaml:"private_key_path"`
	PublicKeyPath        string        `yaml:"public_key_path"`
	TokenTTL             time.Duration `yaml:"token_ttl"`
	ServiceTokenTTL      time.Duration `yaml:"service_token_ttl"`
	GatewayAudience      string        `yaml:"gateway_audience"`
	NotificationAudience string        `yaml:"notification_audience"`
	UserScope            []string      `yaml:"user_scope"`
	SMSCodeExpiry        time.Duration `yaml:"sms_code_expiry"`
	MaxCodeAttempts      int           `yaml:"max_code_attempts"`
	BcryptCost           int           `yaml:"bcrypt_cost"`
}

// NotificationConfig covers both sides of the notification service: the
// URL clients post to, and the SMS provider the service itself uses.
type NotificationConfig struct {
	URL              string        `yaml:"url"`
	Timeout          time.Duration `yaml:"timeout"`
	Provider         string        `yaml:"provider"`
	ProviderURL      string        `yaml:"provider_url"`
	ProviderUser     string        `yaml:"provider_user"`
	ProviderPassword string        `yaml:"provider_password"`
	ProviderFrom     string        `yaml:"provider_from"`
}

type GatewayConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// KafkaConfig enables audit publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

// RateLimitConfig bounds how often one client may request verification
// codes (VerificationLimit) and submit them (VerifyLimit) per window. A zero
// limit disables that check.
type RateLimitConfig struct {
	VerificationLimit  int           `yaml:"verification_limit"`
	VerifyLimit        int           `yaml:"verify_limit"`
	VerificationWindow time.Duration `yaml:"verification_window"`
}

// Default returns the development configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:             ":7070",
			NotificationAddr: ":2020",
			LogLevel:         "info",
			ShutdownTimeout:  10 * time.Second,
			RequestTimeout:   30 * time.Second,
		},
		Storage: Storage{Driver: "memory"},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			Table:        "kv_entries",
			MaxOpenConns: 10,
		},
		Badger: BadgerConfig{
			Path:       "data/badger",
			SyncWrites: true,
		},
		Auth: AuthConfig{
			Issuer:               "opencrvs:auth-service",
			TokenTTL:             7 * 24 * time.Hour,
			ServiceTokenTTL:      time.Minute,
			GatewayAudience:      "opencrvs:gateway-user",
			NotificationAudience: "opencrvs:notification-user",
			UserScope:            []string{"declare"},
			SMSCodeExpiry:        10 * time.Minute,
			MaxCodeAttempts:      5,
			BcryptCost:           10,
		},
		Notification: NotificationConfig{
			URL:      "http://localhost:2020/",
			Timeout:  10 * time.Second,
			Provider: "log",
		},
		Gateway: GatewayConfig{
			URL:     "http://localhost:7070/graphql",
			Timeout: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:    "opencrvs.audit",
			ClientID: "opencrvs",
		},
		RateLimit: RateLimitConfig{
			VerificationLimit:  5,
			VerifyLimit:        20,
			VerificationWindow: 10 * time.Minute,
		},
	}
}

// FromEnv loads configuration using the file named by OPENCRVS_CONFIG, if any.
func FromEnv() (Config, error) {
	return Load(os.Getenv("OPENCRVS_CONFIG"))
}

// Load reads defaults, overlays the YAML file at path (when non-empty) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - operator supplied path
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envString("OPENCRVS_ADDR", &cfg.Server.Addr)
	envString("NOTIFICATION_ADDR", &cfg.Server.NotificationAddr)
	envString("LOG_LEVEL", &cfg.Server.LogLevel)
	envString("STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("REDIS_URL", &cfg.Redis.URL)
	envString("POSTGRES_DSN", &cfg.Postgres.DSN)
	envString("BADGER_PATH", &cfg.Badger.Path)
	envString("JWT_ISSUER", &cfg.Auth.Issuer)
	envString("CERT_PRIVATE_KEY_PATH", &cfg.Auth.PrivateKeyPath)
	envString("CERT_PUBLIC_KEY_PATH", &cfg.Auth.PublicKeyPath)
	envString("NOTIFICATION_SERVICE_URL", &cfg.Notification.URL)
	envString("SMS_PROVIDER", &cfg.Notification.Provider)
	envString("SMS_PROVIDER_URL", &cfg.Notification.ProviderURL)
	envString("SMS_PROVIDER_USER", &cfg.Notification.ProviderUser)
	envString("SMS_PROVIDER_PASSWORD", &cfg.Notification.ProviderPassword)
	envString("SMS_PROVIDER_FROM", &cfg.Notification.ProviderFrom)
	envString("GATEWAY_URL", &cfg.Gateway.URL)
	envString("KAFKA_TOPIC", &cfg.Kafka.Topic)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("BADGER_IN_MEMORY"); v != "" {
		cfg.Badger.InMemory = v == "true"
	}
	if v := os.Getenv("CONFIG_SMS_CODE_EXPIRY_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid CONFIG_SMS_CODE_EXPIRY_SECONDS %q", v)
		}
		cfg.Auth.SMSCodeExpiry = time.Duration(secs) * time.Second
	}
	if v := os.Getenv("VERIFICATION_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid VERIFICATION_RATE_LIMIT %q", v)
		}
		cfg.RateLimit.VerificationLimit = n
	}
	if v := os.Getenv("VERIFY_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid VERIFY_RATE_LIMIT %q", v)
		}
		cfg.RateLimit.VerifyLimit = n
	}
	if v := os.Getenv("VERIFICATION_RATE_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid VERIFICATION_RATE_WINDOW %q", v)
		}
		cfg.RateLimit.VerificationWindow = d
	}
	if v := os.Getenv("CONFIG_TOKEN_EXPIRY_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid CONFIG_TOKEN_EXPIRY_SECONDS %q", v)
		}
		cfg.Auth.TokenTTL = time.Duration(secs) * time.Second
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
