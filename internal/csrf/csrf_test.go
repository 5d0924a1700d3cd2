package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedCookie(t *testing.T, g *Guard) (*http.Cookie, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	token, err := g.IssueToken(rec)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], token
}

func TestIssueToken_ReadableCookie(t *testing.T) {
	g := NewGuard(Options{Secure: true})

	cookie, token := issuedCookie(t, g)
	assert.Equal(t, DefaultCookieName, cookie.Name)
	assert.Equal(t, token, cookie.Value)
	assert.False(t, cookie.HttpOnly, "the client must be able to read the cookie")
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.NotEmpty(t, token)
}

func TestIssueToken_FreshTokenPerCall(t *testing.T) {
	g := NewGuard(Options{})

	_, first := issuedCookie(t, g)
	_, second := issuedCookie(t, g)
	assert.NotEqual(t, first, second)
}

func TestValidateRequest_SafeMethodsExempt(t *testing.T) {
	g := NewGuard(Options{})

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace} {
		r := httptest.NewRequest(method, "/resource", nil)
		assert.NoError(t, g.ValidateRequest(r), method)
	}
}

func TestValidateRequest_IgnoredMethodExempt(t *testing.T) {
	g := NewGuard(Options{IgnoreMethods: []string{http.MethodPost}})

	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	assert.NoError(t, g.ValidateRequest(r))

	// Other mutating methods are still validated.
	r = httptest.NewRequest(http.MethodPut, "/resource", nil)
	assert.ErrorIs(t, g.ValidateRequest(r), ErrMissingToken)
}

func TestValidateRequest_MissingCookie(t *testing.T) {
	g := NewGuard(Options{})

	r := httptest.NewRequest(http.MethodPost, "/resource", nil)
	r.Header.Set(DefaultHeaderName, "something")
	assert.ErrorIs(t, g.ValidateRequest(r), ErrMissingToken)
}

func TestValidateRequest_HeaderMismatch(t *testing.T) {
	g := NewGuard(Options{})
	_, token := issuedCookie(t, g)

	r := httptest.NewRequest(http.MethodPost, "/resource", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	assert.ErrorIs(t, g.ValidateRequest(r), ErrTokenMismatch, "missing header")

	r.Header.Set(DefaultHeaderName, "not-the-token")
	assert.ErrorIs(t, g.ValidateRequest(r), ErrTokenMismatch, "wrong header")
}

func TestValidateRequest_MatchingPairPasses(t *testing.T) {
	g := NewGuard(Options{})
	_, token := issuedCookie(t, g)

	r := httptest.NewRequest(http.MethodDelete, "/resource", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	r.Header.Set(DefaultHeaderName, token)
	assert.NoError(t, g.ValidateRequest(r))
}

func TestNewGuard_CustomNames(t *testing.T) {
	g := NewGuard(Options{CookieName: "MY-CSRF", HeaderName: "X-MY-CSRF"})

	cookie, token := issuedCookie(t, g)
	assert.Equal(t, "MY-CSRF", cookie.Name)

	r := httptest.NewRequest(http.MethodPost, "/resource", nil)
	r.AddCookie(&http.Cookie{Name: "MY-CSRF", Value: token})
	r.Header.Set("X-MY-CSRF", token)
	assert.NoError(t, g.ValidateRequest(r))
}
