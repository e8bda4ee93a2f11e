package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "opencrvs/pkg/domain-errors"
)

// ApplicationID identifies an application inside a user's registry. It is
// generated locally and never reused.
type ApplicationID uuid.UUID

// NewApplicationID returns a fresh random application id.
func NewApplicationID() ApplicationID {
	return ApplicationID(uuid.New())
}

// ParseApplicationID constructs an ApplicationID from external input.
// Invariant: must be a valid, non-nil UUID.
func ParseApplicationID(s string) (ApplicationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid application id")
	}
	if parsed == uuid.Nil {
		return ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "application id cannot be nil")
	}
	return ApplicationID(parsed), nil
}

func (id ApplicationID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the id is the zero value.
func (id ApplicationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id ApplicationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid application id")
	}
	*id = ApplicationID(parsed)
	return nil
}

// UserID is the token subject that owns a registry. Practitioner ids and
// verified mobile numbers are both valid subjects, so it is an opaque string.
type UserID string

const maxUserIDLength = 128

// ParseUserID constructs a UserID from external input.
// Invariant: non-empty, at most 128 bytes, no whitespace or control characters.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if len(s) > maxUserIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "user id is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return "", dErrors.New(dErrors.CodeInvalidInput, "user id contains invalid characters")
		}
	}
	return UserID(s), nil
}

func (id UserID) String() string {
	return string(id)
}

// IsNil reports whether the id is empty.
func (id UserID) IsNil() bool {
	return id == ""
}
