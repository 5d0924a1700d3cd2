package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-session-auth/internal/model"
)

const testSecret = "test-secret"

func TestSign_SubjectAndPayloadDisjoint(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	signed, err := s.Sign(model.SanitizedUser{
		ID:     "u1",
		Claims: map[string]any{"role": "admin"},
	})
	require.NoError(t, err)

	// Decode with the underlying library to inspect the raw payload.
	parsed, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, "HS512", parsed.Header["alg"])

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "u1", claims["sub"])
	assert.Equal(t, "admin", claims["role"])
	_, hasID := claims["id"]
	assert.False(t, hasID, "id must not appear in the payload; it lives in the subject")
}

func TestSign_MissingSubjectFailsBeforeSigning(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = s.Sign(model.SanitizedUser{Claims: map[string]any{"role": "admin"}})
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestSign_ReservedClaimsNotOverridable(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	signed, err := s.Sign(model.SanitizedUser{
		ID:     "u1",
		Claims: map[string]any{"sub": "attacker", "exp": 0},
	})
	require.NoError(t, err)

	identity, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.Subject)
}

func TestVerify_RoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	signed, err := s.Sign(model.SanitizedUser{
		ID:     "u42",
		Claims: map[string]any{"username": "alice", "role": "user"},
	})
	require.NoError(t, err)

	identity, err := s.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u42", identity.Subject)
	assert.Equal(t, "alice", identity.Claims["username"])
	assert.Equal(t, "user", identity.Claims["role"])
}

func TestVerify_Expired(t *testing.T) {
	s, err := NewSigner(testSecret, time.Nanosecond)
	require.NoError(t, err)

	signed, err := s.Sign(model.SanitizedUser{ID: "u1"})
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	s, err := NewSigner("right-secret", time.Hour)
	require.NoError(t, err)
	signed, err := s.Sign(model.SanitizedUser{ID: "u1"})
	require.NoError(t, err)

	other, err := NewSigner("wrong-secret", time.Hour)
	require.NoError(t, err)
	_, err = other.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsForeignSigningMethod(t *testing.T) {
	// A token signed with HS256 under the correct secret must still fail:
	// the verifier is pinned to HS512.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)
	_, err = s.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	s, err := NewSigner(testSecret, time.Hour)
	require.NoError(t, err)

	_, err = s.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSigner_Validation(t *testing.T) {
	_, err := NewSigner("", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	s, err := NewSigner(testSecret, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.TTL())
}
