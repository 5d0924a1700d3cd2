//go:build integration

package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-session-auth/internal/config"
	"go-session-auth/internal/csrf"
	"go-session-auth/internal/handler"
	"go-session-auth/internal/hashing"
	"go-session-auth/internal/middleware"
	"go-session-auth/internal/model"
	"go-session-auth/internal/router"
	"go-session-auth/internal/service"
)

// memoryStore backs the integration server so the suite runs without
// PostgreSQL. Single-goroutine use only.
type memoryStore struct {
	users map[string]model.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]model.User{}}
}

func (s *memoryStore) FindByID(_ context.Context, id string) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *memoryStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	return err == nil, nil
}

func (s *memoryStore) Create(_ context.Context, u model.User) error {
	s.users[u.ID] = u
	return nil
}

func (s *memoryStore) UpdatePassword(_ context.Context, userID string, passwordHash string) error {
	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	s.users[userID] = u
	return nil
}

func (s *memoryStore) IncrementFailedAttempts(_ context.Context, userID string) (int, error) {
	u, ok := s.users[userID]
	if !ok {
		return 0, model.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	s.users[userID] = u
	return u.FailedLoginAttempts, nil
}

func (s *memoryStore) LockAccount(_ context.Context, userID string, until time.Time) error {
	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.LockedUntil = &until
	s.users[userID] = u
	return nil
}

func (s *memoryStore) ResetFailedAttempts(_ context.Context, userID string) error {
	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	s.users[userID] = u
	return nil
}

func (s *memoryStore) Count(_ context.Context) (int, error) {
	return len(s.users), nil
}

// newAuthServer builds the full HTTP surface over an in-memory store,
// seeded with an admin/admin123 account.
func newAuthServer(t *testing.T) (*httptest.Server, *service.AuthService) {
	t.Helper()

	store := newMemoryStore()
	authService := service.NewAuthService(store, hashing.Default(), 3, time.Hour)
	require.NoError(t, authService.SeedDefaultAdmin(context.Background(), "admin", "admin123"))

	guard := csrf.NewGuard(csrf.Options{IgnoreMethods: []string{http.MethodPost}})

	login, err := middleware.NewLogin(middleware.LoginOptions{
		GetUser:   authService.GetUser,
		Secret:    "integration-test-secret",
		TTL:       time.Hour,
		LoginHook: authService.OnLoginSuccess,
		OnFailure: authService.OnLoginFailure,
		Rehash:    authService.Rehash,
		CSRF:      guard,
	})
	require.NoError(t, err)

	identify, err := middleware.NewIdentify(middleware.IdentifyOptions{Secret: "integration-test-secret"})
	require.NoError(t, err)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "integration-test-secret",
		AccessTokenTTL:   time.Hour,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}

	server := httptest.NewServer(router.New(cfg, login, identify, handler.NewAuthHandler(authService, guard)))
	t.Cleanup(server.Close)

	return server, authService
}

// newCookieClient returns a client with a jar, so the session cookies set
// at login flow into subsequent requests like a browser.
func newCookieClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func postJSON(t *testing.T, client *http.Client, url string, body string) *http.Response {
	t.Helper()

	resp, err := client.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func login(t *testing.T, client *http.Client, serverURL string, username string, password string) *http.Response {
	t.Helper()
	return postJSON(t, client, serverURL+"/api/v1/auth/login",
		`{"username":"`+username+`","password":"`+password+`"}`)
}
