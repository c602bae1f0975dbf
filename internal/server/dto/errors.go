// Package dto defines API request/response types and error handling.
//
// The dto package is the API contract layer. It does not import the domain
// packages; conversion between the two lives in the handlers package.
//
// Error handling follows a structured pattern:
//   - ErrorCode provides machine-readable error classification
//   - APIError wraps errors with HTTP status codes and details
//   - Constructor functions (NotFound, BadRequest, etc.) create common errors
package dto

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidFormat is returned when a field has an invalid format.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// ErrorCodeNotFound is returned when a resource is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeStorageError is returned when the content store fails.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeUpstreamError is returned when a collaborator service fails.
	ErrorCodeUpstreamError ErrorCode = "UPSTREAM_ERROR"

	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeNotConfigured is returned when a required credential is absent.
	ErrorCodeNotConfigured ErrorCode = "NOT_CONFIGURED"
	// ErrorCodeConflict is returned when the caller's version token is stale.
	ErrorCodeConflict ErrorCode = "CONFLICT"
	// ErrorCodeUnauthorized is returned when a signature is missing or invalid.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeForbidden is returned when the path policy rejects a path.
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrorCodeMethodNotAllowed is returned for a known path with the wrong method.
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"

	// ErrorCodePayloadTooLarge is returned when a request body exceeds the limit.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrorCodeRateLimitExceeded is returned when a client is throttled.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodeTimeout is returned when a collaborator call times out.
	ErrorCodeTimeout ErrorCode = "TIMEOUT"
)

// ErrorDetails defines the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
	// Message is the public message, without any wrapped cause.
	Message() string
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
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
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

// Message returns the message without the wrapped cause.
func (e *APIError) Message() string {
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// Predefined error constructors for common cases

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "Missing required field: "+fieldName).
		WithDetail("field", fieldName)
}

// InvalidField creates a 400 error for a field with an invalid value.
func InvalidField(fieldName, reason string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidFormat, "Invalid "+fieldName+": "+reason).
		WithDetail("field", fieldName)
}

// Forbidden returns a 403 Forbidden error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrorCodeForbidden, message)
}

// PolicyRejection returns a 403 error carrying the path policy reason.
func PolicyRejection(path, reason string) *APIError {
	return Forbidden("Access denied: "+reason).WithDetails(map[string]any{"path": path, "reason": reason})
}

// UploadRejected returns a 400 error for an upload of the wrong type or size.
func UploadRejected(reason string) *APIError {
	return BadRequest(reason).WithDetail("reason", reason)
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized(message string) *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrorCodeUnauthorized, message)
}

// Conflict returns a 409 error for a stale version token.
func Conflict(path string) *APIError {
	return NewAPIError(http.StatusConflict, ErrorCodeConflict, "File was modified by someone else; read it again and retry").
		WithDetail("path", path)
}

// MethodNotAllowed returns a 405 error listing the allowed methods.
func MethodNotAllowed(method string, allowed []string) *APIError {
	return NewAPIError(http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "Method "+method+" not allowed").
		WithDetail("allowed", allowed)
}

// PayloadTooLarge returns a 413 error for an oversized request body.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, "Request body exceeds "+strconv.FormatInt(limit, 10)+" bytes").
		WithDetail("limit", limit)
}

// RateLimitExceeded returns a 429 error.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimitExceeded, "Too many requests").
		WithDetail("retry_after", retryAfter)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}

// StorageError returns a 500 error for a failed content store call. The
// cause is kept for logs only.
func StorageError(operation string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeStorageError, "Failed to "+operation).Wrap(err)
}

// UpstreamError returns a 500 error for a failed collaborator service call.
func UpstreamError(service string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeUpstreamError, service+" request failed").Wrap(err)
}

// NotConfigured returns a 500 error for a feature missing its credentials.
func NotConfigured(feature string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeNotConfigured, feature+" is not configured").
		WithDetail("feature", feature)
}

// Timeout returns a 504 error for a collaborator call that ran out of time.
func Timeout(service string) *APIError {
	return NewAPIError(http.StatusGatewayTimeout, ErrorCodeTimeout, service+" timed out")
}
