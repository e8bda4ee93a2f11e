package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrvs/internal/application/models"
	"opencrvs/internal/application/store"
	jwttoken "opencrvs/internal/jwt_token"
	"opencrvs/internal/kv"
	id "opencrvs/pkg/domain"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func run(t *testing.T, c *cli, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.out = &out
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func memoryCLI(mem *kv.Memory) *cli {
	return &cli{
		openStore: func(context.Context) (kv.Store, io.Closer, error) {
			return mem, nopCloser{}, nil
		},
	}
}

func TestKeysAndToken(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, memoryCLI(kv.NewMemory()), "keys", "generate", "--dir", dir, "--bits", "1024")
	require.NoError(t, err)
	assert.Contains(t, out, "private-key.pem")

	info, err := os.Stat(filepath.Join(dir, "private-key.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = run(t, memoryCLI(kv.NewMemory()), "token", "issue",
		"--key", filepath.Join(dir, "private-key.pem"),
		"--subject", "auth",
		"--ttl", "5m")
	require.NoError(t, err)

	publicKey, err := jwttoken.LoadPublicKey(filepath.Join(dir, "public-key.pem"))
	require.NoError(t, err)
	claims, err := jwttoken.NewJWTService(nil, publicKey, "opencrvs:auth-service", "opencrvs:notification-user").
		ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "auth", claims.Subject)
	assert.Equal(t, []string{"service"}, claims.Scope)
}

func TestTokenRequiresKey(t *testing.T) {
	_, err := run(t, memoryCLI(kv.NewMemory()), "token", "issue")
	assert.Error(t, err)
}

func TestTrackingID(t *testing.T) {
	out, err := run(t, memoryCLI(kv.NewMemory()), "tracking-id", "--event", "death", "-n", "3")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Regexp(t, regexp.MustCompile(`^D[0-9A-Z]{6}$`), l)
	}

	_, err = run(t, memoryCLI(kv.NewMemory()), "tracking-id", "--event", "marriage")
	assert.Error(t, err)
}

func TestApplications(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	reg, err := store.NewRegistries(mem).For(ctx, "practitioner-1")
	require.NoError(t, err)

	draft := models.New(id.EventBirth, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	sent := models.New(id.EventDeath, time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC))
	sent.SubmissionStatus = models.StatusSubmitted
	sent.TrackingID = "D5WGYJE"
	require.NoError(t, reg.Upsert(ctx, draft))
	require.NoError(t, reg.Upsert(ctx, sent))

	t.Run("list filters by worklist", func(t *testing.T) {
		out, err := run(t, memoryCLI(mem), "applications", "list", "--user", "practitioner-1", "--worklist", "sent-for-review")
		require.NoError(t, err)
		assert.Contains(t, out, sent.ID.String())
		assert.Contains(t, out, "D5WGYJE")
		assert.NotContains(t, out, draft.ID.String())
	})

	t.Run("export", func(t *testing.T) {
		out, err := run(t, memoryCLI(mem), "apps", "export", "--user", "practitioner-1")
		require.NoError(t, err)
		var snapshot struct {
			UserID       string               `json:"userId"`
			Applications []models.Application `json:"applications"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &snapshot))
		assert.Equal(t, "practitioner-1", snapshot.UserID)
		require.Len(t, snapshot.Applications, 2)
		assert.Equal(t, draft.ID, snapshot.Applications[0].ID)
	})

	t.Run("requires user", func(t *testing.T) {
		_, err := run(t, memoryCLI(mem), "applications", "export")
		assert.Error(t, err)
	})

	t.Run("unknown worklist", func(t *testing.T) {
		_, err := run(t, memoryCLI(mem), "applications", "list", "--user", "practitioner-1", "--worklist", "archive")
		assert.Error(t, err)
	})
}
