// Package hashing provides password hashing for the login pipeline.
//
// Two drivers ship with the package: Argon2id (the default for new hashes)
// and scrypt (kept for verifying hashes produced before the Argon2id
// migration). Hashes are encoded as PHC-style strings, so every parameter
// needed for verification travels inside the hash itself and [Verify] can
// pick the right driver from the prefix alone. A deployment can therefore
// switch its default algorithm without invalidating stored hashes.
package hashing

import "strings"

// DriverName identifies a hashing algorithm driver.
type DriverName string

const (
	// DriverArgon2id selects the Argon2id driver (default for new hashes).
	DriverArgon2id DriverName = "argon2id"
	// DriverScrypt selects the scrypt driver (legacy, verify-mostly).
	DriverScrypt DriverName = "scrypt"
)

// Hasher is the interface satisfied by all password-hashing drivers.
// Implementations are immutable after construction and safe for concurrent
// use.
type Hasher interface {
	// Make hashes a plaintext password and returns the encoded hash string.
	// A fresh random salt is generated for every call.
	Make(password string) (string, error)

	// Check verifies password against a previously encoded hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, and
	// (false, err) when the hash is structurally invalid — a mismatch and a
	// malformed hash are distinguishable conditions.
	Check(password, hash string) (bool, error)

	// NeedsRehash reports whether the hash was produced with parameters
	// different from the hasher's current configuration. Callers should
	// re-hash on the next successful login when this returns true.
	NeedsRehash(hash string) (bool, error)

	// Driver returns the DriverName implemented by this hasher.
	Driver() DriverName
}

// DetectDriver inspects a hash string's prefix and returns the driver that
// produced it. The second return value is false for unrecognised formats.
func DetectDriver(hash string) (DriverName, bool) {
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return DriverArgon2id, true
	case strings.HasPrefix(hash, "$scrypt$"):
		return DriverScrypt, true
	default:
		return "", false
	}
}

// New constructs the named driver with its default options.
func New(name DriverName) (Hasher, error) {
	switch name {
	case DriverArgon2id:
		return NewArgon2idHasher(DefaultArgon2idOptions())
	case DriverScrypt:
		return NewScryptHasher(DefaultScryptOptions())
	default:
		return nil, ErrUnknownDriver
	}
}

// Default returns the Argon2id driver with default options. The defaults
// are valid, so the error from the constructor cannot occur.
func Default() Hasher {
	h, _ := NewArgon2idHasher(DefaultArgon2idOptions())
	return h
}

// NeedsRehash reports whether hash should be regenerated under current:
// either it was produced by a different driver, or by the same driver with
// different parameters. Callers re-hash on the next successful login.
func NeedsRehash(hash string, current Hasher) (bool, error) {
	name, ok := DetectDriver(hash)
	if !ok {
		return false, ErrInvalidHash
	}

	if name != current.Driver() {
		return true, nil
	}

	return current.NeedsRehash(hash)
}

// Verify checks password against hash, selecting the driver from the hash
// prefix. A scrypt hash verifies correctly even when the caller's current
// default is Argon2id.
func Verify(password, hash string) (bool, error) {
	name, ok := DetectDriver(hash)
	if !ok {
		return false, ErrInvalidHash
	}

	h, err := New(name)
	if err != nil {
		return false, err
	}

	return h.Check(password, hash)
}
