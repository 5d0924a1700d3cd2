//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func jarCookie(t *testing.T, client *http.Client, serverURL string, name string) *http.Cookie {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginFlow(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := login(t, client, server.URL, "admin", "admin123")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NotNil(t, jarCookie(t, client, server.URL, "ACCESS-TOKEN"))
	require.NotNil(t, jarCookie(t, client, server.URL, "XSRF-TOKEN"))

	// The session cookie authenticates /me.
	resp = get(t, client, server.URL+"/api/v1/auth/me")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me struct {
		Success bool `json:"success"`
		Data    struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}
	decodeBody(t, resp, &me)
	assert.True(t, me.Success)
	assert.Equal(t, "admin", me.Data.Username)
	assert.Equal(t, "admin", me.Data.Role)
}

func TestLoginRejections(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	cases := []struct {
		name    string
		body    string
		message string
	}{
		{"missing username", `{"password":"admin123"}`, "Missing username."},
		{"missing password", `{"username":"admin"}`, "Missing password."},
		{"unknown user", `{"username":"ghost","password":"x"}`, "Unknown user."},
		{"wrong password", `{"username":"admin","password":"nope"}`, "Invalid password."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, client, server.URL+"/api/v1/auth/login", tc.body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var parsed struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			decodeBody(t, resp, &parsed)
			assert.Equal(t, tc.message, parsed.Error.Message)
		})
	}
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	// Threshold is 3 in the test server.
	for i := 0; i < 3; i++ {
		resp := login(t, client, server.URL, "admin", "wrong")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// Even the correct password is refused while the account is locked,
	// and the response does not say why.
	resp := login(t, client, server.URL, "admin", "admin123")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, resp, &parsed)
	assert.Equal(t, "Unknown user.", parsed.Error.Message)
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := get(t, client, server.URL+"/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/api/v1/auth/register", `{"username":"x","password":"y"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterIsAdminGated(t *testing.T) {
	server, _ := newAuthServer(t)

	// Admin can create a regular user.
	adminClient := newCookieClient(t)
	resp := login(t, adminClient, server.URL, "admin", "admin123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, adminClient, server.URL+"/api/v1/auth/register",
		`{"username":"bob","password":"bobpw","role":"user"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The new user can log in but cannot register others.
	bobClient := newCookieClient(t)
	resp = login(t, bobClient, server.URL, "bob", "bobpw")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, bobClient, server.URL+"/api/v1/auth/register",
		`{"username":"eve","password":"evepw"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := login(t, client, server.URL, "admin", "admin123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/api/v1/auth/register",
		`{"username":"bob","password":"bobpw"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/api/v1/auth/register",
		`{"username":"bob","password":"other"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogoutClearsSession(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := login(t, client, server.URL, "admin", "admin123")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, server.URL+"/api/v1/auth/logout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The jar dropped the expired cookies, so /me is anonymous again.
	resp = get(t, client, server.URL+"/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCsrfEndpointIssuesToken(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := get(t, client, server.URL+"/api/v1/auth/csrf")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			CsrfToken string `json:"csrf_token"`
		} `json:"data"`
	}
	decodeBody(t, resp, &parsed)
	assert.NotEmpty(t, parsed.Data.CsrfToken)

	cookie := jarCookie(t, client, server.URL, "XSRF-TOKEN")
	require.NotNil(t, cookie)
	assert.Equal(t, parsed.Data.CsrfToken, cookie.Value)
}

func TestHealth(t *testing.T) {
	server, _ := newAuthServer(t)
	client := newCookieClient(t)

	resp := get(t, client, server.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
