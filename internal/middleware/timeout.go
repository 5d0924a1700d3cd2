package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds request handling. A stalled user lookup or post-login hook
// would otherwise block the pipeline indefinitely; this is the external
// deadline the host layer imposes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"success":false,"error":{"code":"REQUEST_TIMEOUT","message":"request timed out"}}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
