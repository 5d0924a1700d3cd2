package hashing

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Defaults match libsodium's interactive cost profile, which produced the
// hashes this service inherits.
const (
	DefaultArgon2idMemory  uint32 = 64 * 1024 // KiB
	DefaultArgon2idTime    uint32 = 2
	DefaultArgon2idThreads uint8  = 1
	DefaultArgon2idKeyLen  uint32 = 32
	DefaultArgon2idSaltLen uint32 = 16
)

// Argon2idOptions configures an Argon2idHasher. All parameters are encoded
// into the output hash string, so changing them only affects new hashes.
type Argon2idOptions struct {
	Memory  uint32 // memory cost in KiB
	Time    uint32 // iterations
	Threads uint8  // degree of parallelism
	KeyLen  uint32 // derived key length in bytes
	SaltLen uint32 // random salt length in bytes
}

func DefaultArgon2idOptions() Argon2idOptions {
	return Argon2idOptions{
		Memory:  DefaultArgon2idMemory,
		Time:    DefaultArgon2idTime,
		Threads: DefaultArgon2idThreads,
		KeyLen:  DefaultArgon2idKeyLen,
		SaltLen: DefaultArgon2idSaltLen,
	}
}

// Argon2idHasher hashes passwords with Argon2id in PHC string format:
//
//	$argon2id$v=19$m=65536,t=2,p=1$<salt_b64>$<hash_b64>
//
// Immutable after construction; safe for concurrent use.
type Argon2idHasher struct {
	opts Argon2idOptions
}

func NewArgon2idHasher(opts Argon2idOptions) (*Argon2idHasher, error) {
	if opts.Time < 1 {
		return nil, fmt.Errorf("%w: argon2id time must be >= 1, got %d", ErrInvalidOption, opts.Time)
	}
	if opts.Threads < 1 {
		return nil, fmt.Errorf("%w: argon2id threads must be >= 1, got %d", ErrInvalidOption, opts.Threads)
	}
	if opts.Memory < 8*uint32(opts.Threads) {
		return nil, fmt.Errorf("%w: argon2id memory (%d KiB) must be >= 8*threads", ErrInvalidOption, opts.Memory)
	}
	if opts.SaltLen < 8 {
		return nil, fmt.Errorf("%w: argon2id salt_len must be >= 8, got %d", ErrInvalidOption, opts.SaltLen)
	}
	if opts.KeyLen < 16 {
		return nil, fmt.Errorf("%w: argon2id key_len must be >= 16, got %d", ErrInvalidOption, opts.KeyLen)
	}

	return &Argon2idHasher{opts: opts}, nil
}

func (h *Argon2idHasher) Driver() DriverName { return DriverArgon2id }

func (h *Argon2idHasher) Make(password string) (string, error) {
	salt, err := randomSalt(h.opts.SaltLen)
	if err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, h.opts.Time, h.opts.Memory, h.opts.Threads, h.opts.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.opts.Memory, h.opts.Time, h.opts.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Check reads the parameters from the hash string itself, so verification
// works even when the hasher's own options have since changed.
func (h *Argon2idHasher) Check(password, hash string) (bool, error) {
	p, err := decodeArgon2id(hash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

func (h *Argon2idHasher) NeedsRehash(hash string) (bool, error) {
	p, err := decodeArgon2id(hash)
	if err != nil {
		return false, err
	}

	return p.memory != h.opts.Memory ||
		p.time != h.opts.Time ||
		p.threads != h.opts.Threads ||
		uint32(len(p.key)) != h.opts.KeyLen, nil
}

type argon2idParams struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// decodeArgon2id parses $argon2id$v=19$m=...,t=...,p=...$<salt>$<hash>.
func decodeArgon2id(encoded string) (*argon2idParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5-segment PHC string, got %d segments", ErrInvalidHash, len(parts)-1)
	}
	if parts[1] != string(DriverArgon2id) {
		return nil, fmt.Errorf("%w: hash is %q, not argon2id", ErrAlgorithmMismatch, parts[1])
	}

	version, err := parseKV(parts[2], "v")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version %d", ErrInvalidHash, version)
	}

	kvs, err := parseParams(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	memory, ok1 := kvs["m"]
	time, ok2 := kvs["t"]
	threads, ok3 := kvs["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing m/t/p in parameter segment %q", ErrInvalidHash, parts[3])
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid salt base64: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hash base64: %v", ErrInvalidHash, err)
	}

	return &argon2idParams{
		memory:  uint32(memory),
		time:    uint32(time),
		threads: uint8(threads),
		salt:    salt,
		key:     key,
	}, nil
}

// parseKV parses a "key=value" string and returns the uint64 value.
func parseKV(s, key string) (uint64, error) {
	prefix := key + "="
	if !strings.HasPrefix(s, prefix) {
		return 0, fmt.Errorf("expected %q prefix in %q", prefix, s)
	}
	return strconv.ParseUint(s[len(prefix):], 10, 64)
}

// parseParams splits "m=65536,t=2,p=1" into a map.
func parseParams(s string) (map[string]uint64, error) {
	out := make(map[string]uint64)
	for _, kv := range strings.Split(s, ",") {
		eq := strings.IndexByte(kv, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("malformed param %q", kv)
		}
		v, err := strconv.ParseUint(kv[eq+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric value in %q: %v", kv, err)
		}
		out[kv[:eq]] = v
	}
	return out, nil
}

func randomSalt(n uint32) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("hashing: failed to generate salt: %w", err)
	}
	return b, nil
}
