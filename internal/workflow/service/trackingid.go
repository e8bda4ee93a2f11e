package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	id "opencrvs/pkg/domain"
)

const (
	trackingIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	trackingIDLength   = 6
)

// GenerateBirthTrackingID returns a new upper-cased tracking id prefixed B.
func GenerateBirthTrackingID() (string, error) {
	return generateTrackingID("B")
}

// GenerateDeathTrackingID returns a new upper-cased tracking id prefixed D.
func GenerateDeathTrackingID() (string, error) {
	return generateTrackingID("D")
}

// GenerateTrackingID picks the prefix for event.
func GenerateTrackingID(event id.EventType) (string, error) {
	if event == id.EventDeath {
		return GenerateDeathTrackingID()
	}
	return GenerateBirthTrackingID()
}

func generateTrackingID(prefix string) (string, error) {
	uid, err := shortUID(trackingIDLength)
	if err != nil {
		return "", fmt.Errorf("generating tracking id: %w", err)
	}
	return strings.ToUpper(prefix + uid), nil
}

func shortUID(n int) (string, error) {
	max := big.NewInt(int64(len(trackingIDAlphabet)))
	b := make([]byte, n)
	for i := range b {
		k, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = trackingIDAlphabet[k.Int64()]
	}
	return string(b), nil
}
