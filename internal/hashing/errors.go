package hashing

import "errors"

// Sentinel errors returned by hashing operations. Compare with errors.Is.
var (
	// ErrInvalidHash is returned when a hash string cannot be parsed:
	// unrecognised format, missing segments, or invalid encoding. It is
	// deliberately distinct from a plain password mismatch.
	ErrInvalidHash = errors.New("hashing: invalid or unrecognised hash string")

	// ErrInvalidOption is returned by a constructor when an option value
	// falls outside the allowed range.
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrUnknownDriver is returned by New for an unrecognised driver name.
	ErrUnknownDriver = errors.New("hashing: unknown driver")

	// ErrAlgorithmMismatch is returned by Check or NeedsRehash when the
	// hash was produced by a different algorithm than the hasher's own.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")
)
