package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tjfontaine/interview-gateway/internal/core/domain"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    domain.ErrorType `json:"type"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message"`
}

// WriteError writes err as {"error":{type,code,message}}. Errors that are
// not *domain.APIError become a generic 500 so internal text never leaks.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrServer("internal error")
	}

	if apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
	}
	if apiErr.RateLimit != nil {
		SetRateLimits(r.Context(), apiErr.RateLimit)
	}

	writeJSON(w, apiErr.HTTPStatusCode(), errorBody{Error: errorDetail{
		Type:    apiErr.Type,
		Code:    apiErr.Code,
		Message: apiErr.Message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
