// Package csrf implements the double-submit cookie pattern: a random token
// is written to a readable cookie, and state-changing requests must echo it
// back in a header. Matching cookie and header proves same-origin intent
// without any server-side session store.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"
)

const (
	// DefaultCookieName is the readable cookie the client copies from.
	DefaultCookieName = "XSRF-TOKEN"
	// DefaultHeaderName is the header the client echoes the token in.
	DefaultHeaderName = "X-XSRF-TOKEN"

	tokenBytes     = 32
	cookieLifetime = 24 * time.Hour
)

var (
	// ErrMissingToken is returned when the CSRF cookie is absent or empty.
	ErrMissingToken = errors.New("csrf: missing CSRF token")

	// ErrTokenMismatch is returned when the header is absent or does not
	// match the cookie.
	ErrTokenMismatch = errors.New("csrf: CSRF token mismatch")
)

// Options configures a Guard. Zero values select the defaults.
type Options struct {
	CookieName string
	HeaderName string
	// Secure sets the Secure flag on the issued cookie.
	Secure bool
	// IgnoreMethods lists HTTP methods exempt from validation in addition
	// to the always-safe GET, HEAD, OPTIONS, and TRACE. The login flow
	// exempts POST: the credentials themselves are the proof of intent.
	IgnoreMethods []string
}

// Guard issues and validates double-submit CSRF tokens.
type Guard struct {
	cookieName string
	headerName string
	secure     bool
	ignored    map[string]struct{}
}

func NewGuard(opts Options) *Guard {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.HeaderName == "" {
		opts.HeaderName = DefaultHeaderName
	}

	ignored := make(map[string]struct{}, len(opts.IgnoreMethods))
	for _, m := range opts.IgnoreMethods {
		ignored[m] = struct{}{}
	}

	return &Guard{
		cookieName: opts.CookieName,
		headerName: opts.HeaderName,
		secure:     opts.Secure,
		ignored:    ignored,
	}
}

// IssueToken generates a fresh random token, writes it as a readable cookie
// on w, and returns the plain-text value.
func (g *Guard) IssueToken(w http.ResponseWriter) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false, // the client must be able to read and echo it
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(cookieLifetime),
	})

	return token, nil
}

// ValidateRequest confirms the token echoed in the request header matches
// the CSRF cookie. Safe and explicitly ignored methods pass unconditionally.
func (g *Guard) ValidateRequest(r *http.Request) error {
	if isSafeMethod(r.Method) {
		return nil
	}
	if _, exempt := g.ignored[r.Method]; exempt {
		return nil
	}

	cookie, err := r.Cookie(g.cookieName)
	if err != nil || cookie.Value == "" {
		return ErrMissingToken
	}

	header := r.Header.Get(g.headerName)
	if header == "" {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
