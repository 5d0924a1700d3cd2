package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go-session-auth/internal/csrf"
	"go-session-auth/internal/hashing"
	"go-session-auth/internal/model"
	"go-session-auth/internal/token"
	"go-session-auth/pkg/apierror"
)

// AccessTokenCookie is the HttpOnly session cookie set on successful login.
const AccessTokenCookie = "ACCESS-TOKEN"

// GetUserFunc looks up the user record for a username. Any error — no such
// user or an internal lookup fault — is reported uniformly as "Unknown
// user." so the response never reveals which one it was.
type GetUserFunc func(ctx context.Context, username string) (model.UserRecord, error)

// LoginHookFunc runs after a successful credential check and before tokens
// are issued. A returned error aborts the login.
type LoginHookFunc func(w http.ResponseWriter, r *http.Request, user model.SanitizedUser) error

// LoginOptions configures the login pipeline. GetUser and Secret are
// required; NewLogin fails fast on a misconfiguration instead of throwing
// per request.
type LoginOptions struct {
	GetUser GetUserFunc
	Secret  string
	// TTL is the access-token lifetime. Zero selects token.DefaultTTL.
	TTL time.Duration
	// LoginHook is optional.
	LoginHook LoginHookFunc
	// OnFailure, when supplied, observes rejected passwords so callers can
	// count failed attempts. It runs before the 401 is written.
	OnFailure func(ctx context.Context, record model.UserRecord)
	// Rehash, when supplied, receives an upgraded hash whenever a correct
	// password verified against a hash that is stale under the current
	// default algorithm. A failure here never fails the login.
	Rehash func(ctx context.Context, userID string, newHash string) error
	// CSRF overrides the default guard (POST exempt, all other mutating
	// methods validated).
	CSRF *csrf.Guard
	// SecureCookies controls the Secure flag on issued cookies. Leave true
	// outside of plain-HTTP test setups.
	SecureCookies bool
}

// Login converts a username/password submission into an authenticated
// session. The stages run in a strict order, each one a potential exit
// point: CSRF check, credential extraction, validation, authentication,
// post-login hook, token issuance. A failing stage short-circuits the rest
// and no cookies are set.
type Login struct {
	getUser   GetUserFunc
	signer    *token.Signer
	guard     *csrf.Guard
	hook      LoginHookFunc
	onFailure func(ctx context.Context, record model.UserRecord)
	rehash    func(ctx context.Context, userID string, newHash string) error
	secure    bool
}

func NewLogin(opts LoginOptions) (*Login, error) {
	if opts.GetUser == nil {
		return nil, errors.New("middleware: LoginOptions.GetUser must be provided")
	}

	signer, err := token.NewSigner(opts.Secret, opts.TTL)
	if err != nil {
		return nil, err
	}

	guard := opts.CSRF
	if guard == nil {
		guard = csrf.NewGuard(csrf.Options{
			Secure:        opts.SecureCookies,
			IgnoreMethods: []string{http.MethodPost},
		})
	}

	return &Login{
		getUser:   opts.GetUser,
		signer:    signer,
		guard:     guard,
		hook:      opts.LoginHook,
		onFailure: opts.OnFailure,
		rehash:    opts.Rehash,
		secure:    opts.SecureCookies,
	}, nil
}

// Handler is the terminal login endpoint handler.
func (l *Login) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		// Stage 1: CSRF. POST is exempt because the credentials themselves
		// prove intent; every other mutating method must echo the token.
		if err := l.guard.ValidateRequest(r); err != nil {
			writeError(w, apierror.Forbidden("Invalid CSRF token."))
			return
		}

		// Stage 2: extract credentials into the per-request context.
		credentials, err := decodeCredentials(r)
		if err != nil {
			writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
			return
		}

		// Stage 3: validate.
		if credentials.Username == "" {
			writeError(w, apierror.Unauthorized("Missing username."))
			return
		}
		if credentials.Password == "" {
			writeError(w, apierror.Unauthorized("Missing password."))
			return
		}

		// Stage 4: authenticate. Lookup faults and unknown usernames are
		// indistinguishable to the client.
		record, err := l.getUser(r.Context(), credentials.Username)
		if err != nil {
			writeError(w, apierror.Unauthorized("Unknown user."))
			return
		}

		ok, err := hashing.Verify(credentials.Password, record.Hash)
		if err != nil {
			// A malformed stored hash is not a wrong password; keep the
			// distinction in the logs even though the response is uniform.
			slog.Warn("password verification error", "user_id", record.ID, "error", err)
		}
		if !ok {
			if l.onFailure != nil {
				l.onFailure(r.Context(), record)
			}
			writeError(w, apierror.Unauthorized("Invalid password."))
			return
		}

		l.maybeRehash(r.Context(), record, credentials.Password)

		user := record.Sanitize()

		// Stage 5: post-login hook.
		if l.hook != nil {
			if err := l.hook(w, r, user); err != nil {
				writeError(w, err)
				return
			}
		}

		// Stage 6: issue tokens.
		l.issueTokens(w, user)
	}
}

func (l *Login) issueTokens(w http.ResponseWriter, user model.SanitizedUser) {
	accessToken, err := l.signer.Sign(user)
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := l.guard.IssueToken(w); err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   l.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(l.signer.TTL().Seconds()),
	})

	// 201: session created, no payload.
	w.WriteHeader(http.StatusCreated)
}

// maybeRehash upgrades a stale stored hash after a successful verification.
// Best effort: the session is issued either way.
func (l *Login) maybeRehash(ctx context.Context, record model.UserRecord, password string) {
	if l.rehash == nil {
		return
	}

	stale, err := hashing.NeedsRehash(record.Hash, hashing.Default())
	if err != nil || !stale {
		return
	}

	newHash, err := hashing.Default().Make(password)
	if err != nil {
		slog.Warn("rehash failed", "user_id", record.ID, "error", err)
		return
	}

	if err := l.rehash(ctx, record.ID, newHash); err != nil {
		slog.Warn("rehash persist failed", "user_id", record.ID, "error", err)
	}
}

func decodeCredentials(r *http.Request) (model.LoginRequest, error) {
	var credentials model.LoginRequest
	err := json.NewDecoder(r.Body).Decode(&credentials)
	if err != nil && !errors.Is(err, io.EOF) {
		return model.LoginRequest{}, err
	}
	return credentials, nil
}
