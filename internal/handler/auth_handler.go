package handler

import (
	"encoding/json"
	"net/http"

	"go-session-auth/internal/csrf"
	"go-session-auth/internal/middleware"
	"go-session-auth/internal/model"
	"go-session-auth/internal/service"
	"go-session-auth/pkg/apierror"
)

// AuthHandler serves the account endpoints around the login pipeline:
// CSRF bootstrap, current-user lookup, registration, and logout.
type AuthHandler struct {
	service *service.AuthService
	guard   *csrf.Guard
}

func NewAuthHandler(service *service.AuthService, guard *csrf.Guard) *AuthHandler {
	return &AuthHandler{service: service, guard: guard}
}

// CSRF issues a fresh CSRF token for clients that need one before a
// non-exempt mutating request.
func (h *AuthHandler) CSRF(w http.ResponseWriter, _ *http.Request) {
	token, err := h.guard.IssueToken(w)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// Me returns the account behind the verified bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("Authentication required."))
		return
	}

	user, err := h.service.GetUserByID(r.Context(), identity.Subject)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

// Register creates an account. The route is gated behind the identify
// middleware plus the admin role requirement.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.service.Register(r.Context(), payload.Username, payload.Password, payload.Role)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user)
}

// Logout clears the session cookies. There is no server-side session store
// to invalidate; the token stays valid until its absolute expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	for _, name := range []string{middleware.AccessTokenCookie, csrf.DefaultCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}
