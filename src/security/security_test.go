package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(testSecret, time.Hour)
	token, err := auth.GenerateToken("user-1", "buyer@example.com")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "buyer@example.com", claims.Email)

	_, err = auth.GenerateToken("", "x@example.com")
	assert.Error(t, err)
}

func TestValidateTokenRejects(t *testing.T) {
	auth := NewAuthService(testSecret, time.Hour)

	expired, err := NewAuthService(testSecret, -time.Minute).GenerateToken("user-1", "")
	require.NoError(t, err)
	otherSecret, err := NewAuthService(strings.Repeat("x", 32), time.Hour).GenerateToken("user-1", "")
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tokens := map[string]string{
		"expired":      expired,
		"other secret": otherSecret,
		"no expiry":    noExpiry,
		"no subject":   noSubject,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	}
	for name, token := range tokens {
		_, err := auth.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"action":"membership.went_valid"}`)
	sig := SignPayload(payload, "whsec")

	assert.NoError(t, VerifyWebhookSignature(payload, sig, "whsec"))
	assert.NoError(t, VerifyWebhookSignature(payload, "sha256="+sig, "whsec"))
	assert.NoError(t, VerifyWebhookSignature(payload, strings.ToUpper(sig), "whsec"))

	assert.ErrorIs(t, VerifyWebhookSignature(payload, "", "whsec"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature(payload, "zz", "whsec"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature(payload, sig, "other"), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature([]byte(`{}`), sig, "whsec"), ErrInvalidSignature)
}
