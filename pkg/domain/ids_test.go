package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "opencrvs/pkg/domain-errors"
)

func TestParseApplicationID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		appID, err := ParseApplicationID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, valid.String(), appID.String())
		assert.False(t, appID.IsNil())
	})

	t.Run("text encoding round-trips", func(t *testing.T) {
		appID := NewApplicationID()
		text, err := appID.MarshalText()
		require.NoError(t, err)

		var decoded ApplicationID
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, appID, decoded)
	})
}

func TestParseUserID(t *testing.T) {
	t.Run("accepts practitioner ids and msisdns", func(t *testing.T) {
		for _, in := range []string{"5bf2c2fa8f2b4f1a", "+447789778865"} {
			userID, err := ParseUserID(in)
			require.NoError(t, err)
			assert.Equal(t, in, userID.String())
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		userID, err := ParseUserID("  abc  ")
		require.NoError(t, err)
		assert.Equal(t, UserID("abc"), userID)
	})

	t.Run("rejects empty, long and spaced values", func(t *testing.T) {
		for _, in := range []string{"", "   ", strings.Repeat("a", 129), "a b", "a\x00b"} {
			_, err := ParseUserID(in)
			require.Error(t, err, "input %q", in)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParseEventType(t *testing.T) {
	event, err := ParseEventType(" BIRTH ")
	require.NoError(t, err)
	assert.Equal(t, EventBirth, event)

	event, err = ParseEventType("death")
	require.NoError(t, err)
	assert.Equal(t, EventDeath, event)

	_, err = ParseEventType("marriage")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseEventType("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
