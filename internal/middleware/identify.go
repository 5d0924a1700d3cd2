package middleware

import (
	"context"
	"net/http"
	"strings"

	"go-session-auth/internal/token"
	"go-session-auth/pkg/apierror"
)

// PostIdentifyFunc runs after a bearer token verifies, with the decoded
// identity. It completes before the request proceeds; a returned error
// aborts the request.
type PostIdentifyFunc func(ctx context.Context, identity *token.Identity) error

// IdentifyOptions configures the identify middleware. Secret is required.
type IdentifyOptions struct {
	Secret       string
	PostIdentify PostIdentifyFunc
}

// Identify is a two-stage gate: verify the inbound bearer token's signature
// and expiry, then invoke the post-identify callback (whenever one is
// supplied) before the request continues down the chain.
type Identify struct {
	signer       *token.Signer
	postIdentify PostIdentifyFunc
}

func NewIdentify(opts IdentifyOptions) (*Identify, error) {
	signer, err := token.NewSigner(opts.Secret, 0)
	if err != nil {
		return nil, err
	}

	return &Identify{signer: signer, postIdentify: opts.PostIdentify}, nil
}

// Handler verifies the request's bearer token and stores the identity in
// the request context for downstream handlers.
func (m *Identify) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			writeError(w, apierror.Unauthorized("Missing bearer token."))
			return
		}

		identity, err := m.signer.Verify(tokenString)
		if err != nil {
			writeError(w, apierror.Unauthorized("Invalid or expired token."))
			return
		}

		if m.postIdentify != nil {
			if err := m.postIdentify(r.Context(), identity); err != nil {
				writeError(w, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// bearerToken pulls the token from the Authorization header, falling back
// to the session cookie set at login.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return cookie.Value
	}

	return ""
}

type contextKey string

const identityContextKey contextKey = "auth_identity"

// WithIdentity returns a context carrying the verified identity.
func WithIdentity(ctx context.Context, identity *token.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity stored by Identify.Handler.
func IdentityFromContext(ctx context.Context) (*token.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*token.Identity)
	return identity, ok
}
