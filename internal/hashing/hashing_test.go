package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2id_RoundTrip(t *testing.T) {
	h, err := NewArgon2idHasher(DefaultArgon2idOptions())
	require.NoError(t, err)

	hash, err := h.Make("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := h.Check("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Check("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2id_FreshSaltPerCall(t *testing.T) {
	h, err := NewArgon2idHasher(DefaultArgon2idOptions())
	require.NoError(t, err)

	first, err := h.Make("secret")
	require.NoError(t, err)
	second, err := h.Make("secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestScrypt_RoundTrip(t *testing.T) {
	h, err := NewScryptHasher(DefaultScryptOptions())
	require.NoError(t, err)

	hash, err := h.Make("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$scrypt$"))

	ok, err := h.Check("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Check("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_AutoDetectsDriver(t *testing.T) {
	// A legacy scrypt hash must verify even though the current default
	// driver is Argon2id.
	legacy, err := NewScryptHasher(DefaultScryptOptions())
	require.NoError(t, err)
	scryptHash, err := legacy.Make("legacy-password")
	require.NoError(t, err)

	ok, err := Verify("legacy-password", scryptHash)
	require.NoError(t, err)
	assert.True(t, ok)

	argonHash, err := Default().Make("new-password")
	require.NoError(t, err)

	ok, err = Verify("new-password", argonHash)
	require.NoError(t, err)
	assert.True(t, ok)

	// Correct hash, other password.
	ok, err = Verify("new-password", scryptHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MalformedHashIsNotAMismatch(t *testing.T) {
	_, err := Verify("whatever", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = Verify("whatever", "$argon2id$v=19$garbage")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = Verify("whatever", "$scrypt$ln=14,r=8,p=1$!!!$!!!")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestDetectDriver(t *testing.T) {
	name, ok := DetectDriver("$argon2id$v=19$m=65536,t=2,p=1$c2FsdA$aGFzaA")
	assert.True(t, ok)
	assert.Equal(t, DriverArgon2id, name)

	name, ok = DetectDriver("$scrypt$ln=14,r=8,p=1$c2FsdA$aGFzaA")
	assert.True(t, ok)
	assert.Equal(t, DriverScrypt, name)

	_, ok = DetectDriver("$2b$12$bcrypt-style")
	assert.False(t, ok)
}

func TestNeedsRehash(t *testing.T) {
	current := Default()

	legacy, err := NewScryptHasher(DefaultScryptOptions())
	require.NoError(t, err)
	scryptHash, err := legacy.Make("pw")
	require.NoError(t, err)

	// Different driver: always stale.
	stale, err := NeedsRehash(scryptHash, current)
	require.NoError(t, err)
	assert.True(t, stale)

	// Same driver, current parameters: fresh.
	argonHash, err := current.Make("pw")
	require.NoError(t, err)
	stale, err = NeedsRehash(argonHash, current)
	require.NoError(t, err)
	assert.False(t, stale)

	// Same driver, weaker parameters: stale.
	weakOpts := DefaultArgon2idOptions()
	weakOpts.Time = 1
	weak, err := NewArgon2idHasher(weakOpts)
	require.NoError(t, err)
	weakHash, err := weak.Make("pw")
	require.NoError(t, err)
	stale, err = NeedsRehash(weakHash, current)
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestConstructorOptionValidation(t *testing.T) {
	badArgon := DefaultArgon2idOptions()
	badArgon.SaltLen = 4
	_, err := NewArgon2idHasher(badArgon)
	assert.ErrorIs(t, err, ErrInvalidOption)

	badScrypt := DefaultScryptOptions()
	badScrypt.LogN = 5
	_, err = NewScryptHasher(badScrypt)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = New("md5")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}
