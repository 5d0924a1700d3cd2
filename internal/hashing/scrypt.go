package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// Defaults match the interactive scrypt profile (16 MiB working set) the
// pre-migration hashes were generated with.
const (
	DefaultScryptLogN    uint8  = 14 // N = 2^14
	DefaultScryptR       int    = 8
	DefaultScryptP       int    = 1
	DefaultScryptKeyLen  int    = 32
	DefaultScryptSaltLen uint32 = 16
)

// ScryptOptions configures a ScryptHasher.
type ScryptOptions struct {
	LogN    uint8 // CPU/memory cost exponent, N = 2^LogN
	R       int   // block size
	P       int   // parallelism
	KeyLen  int   // derived key length in bytes
	SaltLen uint32
}

func DefaultScryptOptions() ScryptOptions {
	return ScryptOptions{
		LogN:    DefaultScryptLogN,
		R:       DefaultScryptR,
		P:       DefaultScryptP,
		KeyLen:  DefaultScryptKeyLen,
		SaltLen: DefaultScryptSaltLen,
	}
}

// ScryptHasher hashes passwords with scrypt in a PHC-style format:
//
//	$scrypt$ln=14,r=8,p=1$<salt_b64>$<hash_b64>
//
// It exists for backward compatibility with hashes generated under the
// legacy algorithm; new hashes should come from the Argon2id driver.
type ScryptHasher struct {
	opts ScryptOptions
}

func NewScryptHasher(opts ScryptOptions) (*ScryptHasher, error) {
	if opts.LogN < 10 || opts.LogN > 31 {
		return nil, fmt.Errorf("%w: scrypt ln must be in [10,31], got %d", ErrInvalidOption, opts.LogN)
	}
	if opts.R < 1 || opts.P < 1 {
		return nil, fmt.Errorf("%w: scrypt r and p must be >= 1", ErrInvalidOption)
	}
	if opts.KeyLen < 16 {
		return nil, fmt.Errorf("%w: scrypt key_len must be >= 16, got %d", ErrInvalidOption, opts.KeyLen)
	}
	if opts.SaltLen < 8 {
		return nil, fmt.Errorf("%w: scrypt salt_len must be >= 8, got %d", ErrInvalidOption, opts.SaltLen)
	}

	return &ScryptHasher{opts: opts}, nil
}

func (h *ScryptHasher) Driver() DriverName { return DriverScrypt }

func (h *ScryptHasher) Make(password string) (string, error) {
	salt, err := randomSalt(h.opts.SaltLen)
	if err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(password), salt, 1<<h.opts.LogN, h.opts.R, h.opts.P, h.opts.KeyLen)
	if err != nil {
		return "", fmt.Errorf("hashing: scrypt: %w", err)
	}

	return fmt.Sprintf("$scrypt$ln=%d,r=%d,p=%d$%s$%s",
		h.opts.LogN, h.opts.R, h.opts.P,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *ScryptHasher) Check(password, hash string) (bool, error) {
	p, err := decodeScrypt(hash)
	if err != nil {
		return false, err
	}

	computed, err := scrypt.Key([]byte(password), p.salt, 1<<p.logN, p.r, p.p, len(p.key))
	if err != nil {
		return false, fmt.Errorf("hashing: scrypt: %w", err)
	}

	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

func (h *ScryptHasher) NeedsRehash(hash string) (bool, error) {
	p, err := decodeScrypt(hash)
	if err != nil {
		return false, err
	}

	return p.logN != h.opts.LogN ||
		p.r != h.opts.R ||
		p.p != h.opts.P ||
		len(p.key) != h.opts.KeyLen, nil
}

type scryptParams struct {
	logN uint8
	r    int
	p    int
	salt []byte
	key  []byte
}

func decodeScrypt(encoded string) (*scryptParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 4-segment scrypt string, got %d segments", ErrInvalidHash, len(parts)-1)
	}
	if parts[1] != string(DriverScrypt) {
		return nil, fmt.Errorf("%w: hash is %q, not scrypt", ErrAlgorithmMismatch, parts[1])
	}

	kvs, err := parseParams(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	logN, ok1 := kvs["ln"]
	r, ok2 := kvs["r"]
	p, ok3 := kvs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing ln/r/p in parameter segment %q", ErrInvalidHash, parts[2])
	}
	if logN < 1 || logN > 31 {
		return nil, fmt.Errorf("%w: scrypt ln out of range: %d", ErrInvalidHash, logN)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash base64: %v", ErrInvalidHash, err)
	}

	return &scryptParams{
		logN: uint8(logN),
		r:    int(r),
		p:    int(p),
		salt: salt,
		key:  key,
	}, nil
}
