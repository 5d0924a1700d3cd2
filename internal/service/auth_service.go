package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-session-auth/internal/hashing"
	"go-session-auth/internal/model"
	"go-session-auth/pkg/apierror"
)

// UserStore is the persistence the auth service needs. The pgx-backed
// repository satisfies it in production; tests supply an in-memory stub.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u model.User) error
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	LockAccount(ctx context.Context, userID string, until time.Time) error
	ResetFailedAttempts(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// AuthService supplies the login pipeline's collaborators (lookup, failure
// accounting, rehash persistence) and the account operations behind the
// register and me endpoints. It owns no request handling itself.
type AuthService struct {
	store      UserStore
	hasher     hashing.Hasher
	maxFailed  int
	lockPeriod time.Duration
}

func NewAuthService(store UserStore, hasher hashing.Hasher, maxFailed int, lockPeriod time.Duration) *AuthService {
	if hasher == nil {
		hasher = hashing.Default()
	}
	if maxFailed <= 0 {
		maxFailed = 5
	}
	if lockPeriod <= 0 {
		lockPeriod = 15 * time.Minute
	}

	return &AuthService{
		store:      store,
		hasher:     hasher,
		maxFailed:  maxFailed,
		lockPeriod: lockPeriod,
	}
}

// GetUser is the pipeline's lookup collaborator. A locked account fails the
// lookup, which the pipeline reports as the uniform "Unknown user." — no
// account state leaks through the response.
func (s *AuthService) GetUser(ctx context.Context, username string) (model.UserRecord, error) {
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return model.UserRecord{}, err
	}

	if u.LockedUntil != nil && u.LockedUntil.After(time.Now()) {
		return model.UserRecord{}, model.ErrAccountLocked
	}

	return model.UserRecord{
		ID:   u.ID,
		Hash: u.PasswordHash,
		Claims: map[string]any{
			"username": u.Username,
			"role":     u.Role,
		},
	}, nil
}

// OnLoginFailure counts a rejected password and locks the account once the
// threshold is crossed. Storage errors are swallowed: failure accounting
// must never change the 401 the client already earned.
func (s *AuthService) OnLoginFailure(ctx context.Context, record model.UserRecord) {
	attempts, err := s.store.IncrementFailedAttempts(ctx, record.ID)
	if err != nil {
		return
	}

	if attempts >= s.maxFailed {
		_ = s.store.LockAccount(ctx, record.ID, time.Now().Add(s.lockPeriod))
	}
}

// OnLoginSuccess is wired as the pipeline's post-login hook; it clears the
// failure counter.
func (s *AuthService) OnLoginSuccess(_ http.ResponseWriter, r *http.Request, user model.SanitizedUser) error {
	return s.store.ResetFailedAttempts(r.Context(), user.ID)
}

// Rehash persists an upgraded password hash produced by the pipeline.
func (s *AuthService) Rehash(ctx context.Context, userID string, newHash string) error {
	return s.store.UpdatePassword(ctx, userID, newHash)
}

// Register creates an account. Only invoked behind the admin gate.
func (s *AuthService) Register(ctx context.Context, username string, password string, role string) (model.AuthUser, error) {
	username = strings.TrimSpace(username)
	role = strings.ToLower(strings.TrimSpace(role))

	if username == "" || password == "" {
		return model.AuthUser{}, apierror.New("BAD_REQUEST", "username and password are required", "", http.StatusBadRequest)
	}
	if role == "" {
		role = "user"
	}
	if role != "admin" && role != "user" {
		return model.AuthUser{}, apierror.New("BAD_REQUEST", "invalid role", role, http.StatusBadRequest)
	}

	exists, err := s.store.ExistsByUsername(ctx, username)
	if err != nil {
		return model.AuthUser{}, err
	}
	if exists {
		return model.AuthUser{}, apierror.New("ALREADY_EXISTS", "username already exists", username, http.StatusConflict)
	}

	hash, err := s.hasher.Make(password)
	if err != nil {
		return model.AuthUser{}, err
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, user); err != nil {
		return model.AuthUser{}, err
	}

	return model.AuthUser{ID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// GetUserByID backs the /me endpoint.
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.AuthUser, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return model.AuthUser{}, err
	}

	return model.AuthUser{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// SeedDefaultAdmin creates the bootstrap admin account when the user table
// is empty, so a fresh deployment can be logged into.
func (s *AuthService) SeedDefaultAdmin(ctx context.Context, username string, password string) error {
	count, err := s.store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := s.hasher.Make(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.store.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         "admin",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
