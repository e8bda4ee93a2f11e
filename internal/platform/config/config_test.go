package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without file or env", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
		assert.Equal(t, "memory", cfg.Storage.Driver)
		assert.Equal(t, "opencrvs:auth-service", cfg.Auth.Issuer)
		assert.Equal(t, "opencrvs:notification-user", cfg.Auth.NotificationAudience)
		assert.Equal(t, 10*time.Minute, cfg.Auth.SMSCodeExpiry)
		assert.Equal(t, 5, cfg.Auth.MaxCodeAttempts)
		assert.Equal(t, 20, cfg.RateLimit.VerifyLimit)
	})

	t.Run("yaml file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "opencrvs.yaml")
		content := []byte(`
server:
  addr: ":9090"
storage:
  driver: badger
badger:
  path: /var/lib/opencrvs
auth:
  sms_code_expiry: 90s
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "badger", cfg.Storage.Driver)
		assert.Equal(t, "/var/lib/opencrvs", cfg.Badger.Path)
		assert.Equal(t, 90*time.Second, cfg.Auth.SMSCodeExpiry)
		assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
		// untouched sections keep their defaults
		assert.Equal(t, "opencrvs.audit", cfg.Kafka.Topic)
	})

	t.Run("environment wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "opencrvs.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: badger\n"), 0o600))
		t.Setenv("STORAGE_DRIVER", "redis")
		t.Setenv("CONFIG_SMS_CODE_EXPIRY_SECONDS", "30")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
		t.Setenv("VERIFICATION_RATE_WINDOW", "90s")
		t.Setenv("VERIFY_RATE_LIMIT", "7")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "redis", cfg.Storage.Driver)
		assert.Equal(t, 30*time.Second, cfg.Auth.SMSCodeExpiry)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 90*time.Second, cfg.RateLimit.VerificationWindow)
		assert.Equal(t, 7, cfg.RateLimit.VerifyLimit)
	})

	t.Run("rejects invalid expiry", func(t *testing.T) {
		t.Setenv("CONFIG_SMS_CODE_EXPIRY_SECONDS", "soon")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("rejects invalid rate window", func(t *testing.T) {
		t.Setenv("VERIFICATION_RATE_WINDOW", "-1m")
		_, err := Load("")
		require.Error(t, err)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
