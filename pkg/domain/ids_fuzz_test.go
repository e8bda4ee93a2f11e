//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseUserID checks that parsing never panics on arbitrary input and
// that accepted ids round-trip unchanged.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("+447789778865")
	f.Add("5bf2c2fa8f2b4f1a")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("abc\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		userID, err := ParseUserID(input)

		if err == nil {
			roundTrip, err2 := ParseUserID(userID.String())
			if err2 != nil {
				t.Errorf("valid id failed round-trip: %v", err2)
			}
			if roundTrip != userID {
				t.Error("round-trip changed id value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseApplicationID checks that accepted ids are never nil and always
// format back to a parseable value.
func FuzzParseApplicationID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		appID, err := ParseApplicationID(input)
		if err != nil {
			return
		}
		if appID.IsNil() {
			t.Error("nil application id was accepted")
		}
		if _, err := ParseApplicationID(appID.String()); err != nil {
			t.Errorf("valid id failed round-trip: %v", err)
		}
	})
}
