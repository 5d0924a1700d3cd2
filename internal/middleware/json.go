package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"go-session-auth/internal/model"
	"go-session-auth/pkg/apierror"
)

// writeError funnels every pipeline failure through one reporting path.
// Expected failures arrive as *apierror.APIError with their own status;
// anything else is an internal error and surfaces as a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
