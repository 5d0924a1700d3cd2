package apierror

import (
	"fmt"
	"net/http"
)

// APIError is the expected-failure type for the whole service: an HTTP
// status plus a short, non-revealing reason string. Authentication failures
// (missing field, unknown user, bad password, bad token, CSRF mismatch) are
// all APIErrors; programming errors are plain errors and fail loudly.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Unauthorized builds the 401 variant used by the login and identify
// pipelines. The message is the user-visible reason string.
func Unauthorized(message string) *APIError {
	return New("UNAUTHORIZED", message, "", http.StatusUnauthorized)
}

// Forbidden builds the 403 variant used for CSRF rejections.
func Forbidden(message string) *APIError {
	return New("FORBIDDEN", message, "", http.StatusForbidden)
}
