package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opencrvs/internal/kv"
	"opencrvs/internal/verification/models"
	"opencrvs/pkg/platform/sentinel"
)

func TestCodeStore(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	s := New(backend)
	record := models.CodeRecord{CodeHash: "$2a$04$hash", Mobile: "+447789778865", CreatedAt: 1700000000000}

	require.NoError(t, s.Put(ctx, "abc==", record))

	raw, err := backend.Get(ctx, "verification_abc==")
	require.NoError(t, err)
	assert.JSONEq(t, `{"codeHash":"$2a$04$hash","mobile":"+447789778865","createdAt":1700000000000}`, raw)

	got, err := s.Get(ctx, "abc==")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	require.NoError(t, s.Delete(ctx, "abc=="))
	_, err = s.Get(ctx, "abc==")
	assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	require.NoError(t, s.Delete(ctx, "abc=="))
}

func TestCodeStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	backend := kv.NewMemory()
	require.NoError(t, backend.Set(ctx, Key("n"), "not-json"))
	_, err := New(backend).Get(ctx, "n")
	require.Error(t, err)
	assert.False(t, errors.Is(err, sentinel.ErrNotFound))
}
