package jwttoken

import (
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "opencrvs/pkg/domain-errors"
)

const (
	testIssuer   = "opencrvs:auth-service"
	testAudience = "opencrvs:notification-user"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func Test_IssueAndValidate(t *testing.T) {
	key := newTestKey(t)
	svc := NewJWTService(key, nil, testIssuer, testAudience)

	token, err := svc.Issue("auth", testAudience, []string{"service"}, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "auth", claims.Subject)
	assert.Equal(t, []string{"service"}, claims.Scope)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func Test_ValidateToken_Rejections(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	svc := NewJWTService(key, nil, testIssuer, testAudience)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "auth",
			Issuer:    testIssuer,
			Audience:  []string{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	hs512Token, err := hs512.SignedString([]byte("secret"))
	require.NoError(t, err)

	wrongAudience, err := svc.Issue("auth", "opencrvs:gateway-user", nil, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := NewJWTService(key, nil, "opencrvs:hearth", testAudience).Issue("auth", testAudience, nil, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewJWTService(other, nil, testIssuer, testAudience).Issue("auth", testAudience, nil, time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":        "invalid-token-string",
		"hs512":          hs512Token,
		"wrong audience": wrongAudience,
		"wrong issuer":   wrongIssuer,
		"wrong key":      wrongKey,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
		})
	}
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	key := newTestKey(t)
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer := NewJWTService(key, nil, testIssuer, testAudience, WithClock(func() time.Time { return issuedAt }))
	token, err := issuer.Issue("auth", testAudience, nil, time.Minute)
	require.NoError(t, err)

	later := NewJWTService(nil, &key.PublicKey, testIssuer, testAudience,
		WithClock(func() time.Time { return issuedAt.Add(2 * time.Minute) }))
	_, err = later.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_IssueWithoutPrivateKey(t *testing.T) {
	key := newTestKey(t)
	_, err := NewJWTService(nil, &key.PublicKey, testIssuer, testAudience).Issue("auth", testAudience, nil, time.Minute)
	require.Error(t, err)
}

func Test_GenerateAndLoadKeyPair(t *testing.T) {
	privPEM, pubPEM, err := GenerateKeyPair(2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))

	priv, err := LoadPrivateKey(privPath)
	require.NoError(t, err)
	pub, err := LoadPublicKey(pubPath)
	require.NoError(t, err)

	token, err := NewJWTService(priv, nil, testIssuer, testAudience).Issue("auth", testAudience, nil, time.Minute)
	require.NoError(t, err)
	_, err = NewJWTService(nil, pub, testIssuer, testAudience).ValidateToken(token)
	require.NoError(t, err)

	_, err = LoadPublicKey(filepath.Join(dir, "missing.pem"))
	require.Error(t, err)
}

func Test_AdapterMapsClaims(t *testing.T) {
	key := newTestKey(t)
	svc := NewJWTService(key, nil, testIssuer, testAudience)
	token, err := svc.Issue("user-7", testAudience, []string{"declare"}, time.Minute)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)
	assert.Equal(t, []string{"declare"}, claims.Scope)
}
