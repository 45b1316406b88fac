// Package dto defines API request/response types and error handling.
//
// Error handling follows a structured pattern:
//   - ErrorCode provides machine-readable error classification, logged server side
//   - APIError wraps errors with HTTP status codes and details
//   - Constructor functions (NotFound, BadRequest, etc.) create common errors
//
// Errors are rendered as {"error": "<message>"} with an optional "details"
// object, the shape the contacts clients expect.
package dto

import (
	"fmt"
	"maps"
	"net/http"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeInvalidJSON is returned when a request body is not a JSON object.
	ErrorCodeInvalidJSON ErrorCode = "INVALID_JSON"
	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodePayloadTooLarge is returned when the request body is too big.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrorCodeRateLimitExceeded is returned when a client sends too many requests.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeStorageError is returned when a storage operation fails.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
	}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// Wrap wraps an underlying error. It is logged but never sent to the client.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Message returns the client facing message.
func (e *APIError) Message() string {
	return e.message
}

// Unwrap returns the wrapped error.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns the error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// NotFound returns the 404 error of the contacts API.
func NotFound() *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, "Not found")
}

// BadRequest returns a 400 validation error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// InvalidJSON returns the 400 error for a body that is not a JSON object.
func InvalidJSON() *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidJSON, "Invalid JSON")
}

// PayloadTooLarge returns a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "Payload too large").
		WithDetail("max_bytes", limit)
}

// RateLimitExceeded returns a 429 error.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, "Too many requests").
		WithDetail("retry_after", retryAfter)
}

// StorageError returns a 500 error wrapping a storage failure.
func StorageError(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeStorageError, "Storage error").Wrap(err)
}

// Internal returns a 500 error wrapping err.
func Internal(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, "Internal error").Wrap(err)
}
