// Package token signs and verifies the bearer tokens issued at login.
//
// Tokens are JWTs signed with a single fixed algorithm (HS512). The user id
// travels as the registered subject claim and is kept out of the custom
// payload, so subject and payload stay disjoint. Expiry is absolute: there
// is no refresh mechanism, the verifier enforces the deadline on every
// request.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-session-auth/internal/model"
)

// DefaultTTL is the access-token lifetime used when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrMissingSubject is returned by Sign when the user record carries no
	// id. This is a programming error in the caller's lookup function, not
	// an authentication failure, and is never converted to a 401.
	ErrMissingSubject = errors.New("token: a user id is required for the subject claim; does the lookup return a record with an id?")

	// ErrMissingSecret is returned by NewSigner when no signing secret is
	// supplied.
	ErrMissingSecret = errors.New("token: signing secret must not be empty")

	// ErrInvalidToken covers every verification failure: bad signature,
	// wrong algorithm, expired, malformed, or missing subject.
	ErrInvalidToken = errors.New("token: invalid or expired token")
)

// reserved claims are never copied from user attributes into the payload;
// the signer owns them.
var reservedClaims = map[string]struct{}{
	"id":  {},
	"sub": {},
	"exp": {},
	"iat": {},
	"jti": {},
}

// Identity is the decoded result of a verified token.
type Identity struct {
	Subject string
	Claims  map[string]any
}

// Signer issues and verifies HS512-signed bearer tokens. Immutable after
// construction; safe for concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner validates its configuration up front. A non-positive ttl
// selects DefaultTTL.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Sign issues a token for the sanitized user. The user id becomes the
// subject claim; the remaining attributes become the payload. An empty id
// fails before any signing work happens.
func (s *Signer) Sign(user model.SanitizedUser) (string, error) {
	if user.ID == "" {
		return "", ErrMissingSubject
	}

	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range user.Claims {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}

	return signed, nil
}

// Verify checks the token's signature and expiry and returns the decoded
// identity. The signing method is pinned to HS512.
func (s *Signer) Verify(tokenString string) (*Identity, error) {
	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS512 {
				return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	subject, _ := claimsMap["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}

	claims := make(map[string]any, len(claimsMap))
	for k, v := range claimsMap {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		claims[k] = v
	}

	return &Identity{Subject: subject, Claims: claims}, nil
}
