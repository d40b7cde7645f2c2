package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates a malformed or invalid request.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeAuthentication indicates the caller identity is missing.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypePermission indicates the caller does not own the resource.
	ErrorTypePermission ErrorType = "permission"

	// ErrorTypeNotFound indicates a resource was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates the resource is in the wrong state.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeRateLimit indicates the admission controller rejected the call.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeConfiguration indicates the provider is not configured.
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeEvaluation indicates the evaluation step failed irrecoverably.
	ErrorTypeEvaluation ErrorType = "evaluation"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// ErrorCode provides additional specificity beyond the error type.
type ErrorCode string

const (
	ErrorCodeRateLimitExceeded   ErrorCode = "rate_limit_exceeded"
	ErrorCodeInvalidDifficulty   ErrorCode = "invalid_difficulty"
	ErrorCodeAnswerCountMismatch ErrorCode = "answer_count_mismatch"
	ErrorCodePerQuestionMismatch ErrorCode = "per_question_mismatch"
	ErrorCodeMissingCredential   ErrorCode = "missing_credential"
)

// RateLimitInfo describes the caller's admission budget.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   int64 // Unix timestamp
}

// APIError is the error shape surfaced at the boundary layer.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message"`

	// StatusCode overrides the status derived from Type.
	StatusCode int `json:"-"`

	// RetryAfter is a hint in seconds, set on rate limit errors.
	RetryAfter int `json:"-"`

	RateLimit *RateLimitInfo `json:"-"`

	cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeConfiguration:
		return http.StatusServiceUnavailable
	case ErrorTypeEvaluation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewAPIError creates a new API error.
func NewAPIError(errType ErrorType, message string) *APIError {
	return &APIError{
		Type:    errType,
		Message: message,
	}
}

// WithCode adds an error code to the error.
func (e *APIError) WithCode(code ErrorCode) *APIError {
	e.Code = code
	return e
}

// WithCause records the underlying error for errors.Is/As.
// The cause is never serialized.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// WithRetryAfter sets the retry hint in seconds.
func (e *APIError) WithRetryAfter(seconds int) *APIError {
	e.RetryAfter = seconds
	return e
}

// ErrInvalidRequest creates an invalid request error.
func ErrInvalidRequest(message string) *APIError {
	return NewAPIError(ErrorTypeInvalidRequest, message)
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return NewAPIError(ErrorTypeAuthentication, message)
}

// ErrPermission creates a permission error.
func ErrPermission(message string) *APIError {
	return NewAPIError(ErrorTypePermission, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *APIError {
	return NewAPIError(ErrorTypeNotFound, message)
}

// ErrConflict creates a conflict error.
func ErrConflict(message string) *APIError {
	return NewAPIError(ErrorTypeConflict, message)
}

// ErrRateLimit creates a rate limit error wrapping ErrAdmissionRejected.
func ErrRateLimit(message string) *APIError {
	return NewAPIError(ErrorTypeRateLimit, message).
		WithCode(ErrorCodeRateLimitExceeded).
		WithCause(ErrAdmissionRejected)
}

// ErrServer creates a server error.
func ErrServer(message string) *APIError {
	return NewAPIError(ErrorTypeServer, message)
}

// ErrAdmissionRejected marks a call refused by the admission controller.
// It is never routed to the fallback engine.
var ErrAdmissionRejected = errors.New("admission rejected")

// ErrPerQuestionMismatch marks a provider evaluation whose perQuestion array
// does not line up with the questions asked.
var ErrPerQuestionMismatch = errors.New("per-question score count mismatch")

// ProviderError covers network failures, timeouts, non-2xx replies, and
// unreadable bodies from the provider.
type ProviderError struct {
	Reason string
	Err    error
	// Retryable is set when the upstream marks the failure as transient.
	Retryable bool
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("provider error: %s", e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ValidationError is returned when a provider payload is well-formed but
// does not fit the canonical shape.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a missing or invalid provider setting.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}
