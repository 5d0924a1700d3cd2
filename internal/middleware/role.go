package middleware

import (
	"net/http"
	"strings"

	"go-session-auth/pkg/apierror"
)

// RequireRoles gates a route on the token's role claim. Must be applied
// after Identify.Handler.
func RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	roleSet := map[string]struct{}{}
	for _, role := range allowedRoles {
		roleSet[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, apierror.Unauthorized("Authentication required."))
				return
			}

			role, _ := identity.Claims["role"].(string)
			if _, allowed := roleSet[strings.ToLower(role)]; !allowed {
				writeError(w, apierror.Forbidden("Insufficient permissions."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
