// Package apperror provides structured error handling for the numbering engine.
// Every error that crosses the allocator or admin boundary is an *AppError, so callers
// can branch on Code instead of on storage-layer error types.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"
	CodeTimeout  = "TIMEOUT_ERROR"

	// Allocation could not win the compare-and-swap race in time (503, retryable)
	CodeAllocationContention = "ALLOCATION_CONTENTION"

	// Validation errors (400)
	CodeValidation     = "VALIDATION_ERROR"
	CodeInvalidDate    = "INVALID_DATE"
	CodeInvalidCounter = "INVALID_COUNTER"

	// Business rule violations (422)
	CodePeriodClosed = "PERIOD_CLOSED"

	// Optimistic concurrency (409)
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"
)

// AppError is the standard error type of the module.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, keys, attempts)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested status for a transport adapter
	HTTPStatus int `json:"-"`

	// Retryable marks errors the caller may resubmit unchanged
	Retryable bool `json:"retryable,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewValidationErrors creates a validation error carrying field-level messages.
// Field names follow the JSON path of the offending input, e.g. "entries[2].padding_zeros".
func NewValidationErrors(fields map[string]string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    "Validation failed",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"fields": fields},
	}
}

// NewInvalidDate is returned when a fiscal year is requested for a missing date.
func NewInvalidDate(reason string) *AppError {
	return &AppError{
		Code:       CodeInvalidDate,
		Message:    "Invalid document date",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"reason": reason},
	}
}

// NewInvalidCounter is returned when a counter is negative or outside the
// range a sequence may issue.
func NewInvalidCounter(counter int64) *AppError {
	return &AppError{
		Code:       CodeInvalidCounter,
		Message:    "Counter is out of range",
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"counter": counter},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewPeriodClosed creates error when a number is requested for a fiscal year
// the sequence has already rolled past.
func NewPeriodClosed(period string) *AppError {
	return &AppError{
		Code:       CodePeriodClosed,
		Message:    fmt.Sprintf("Fiscal year %s is closed for numbering", period),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"period": period},
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently. Please retry.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
		Retryable:  true,
	}
}

// NewAllocationContention is returned after the allocator exhausted its retries.
// The document-create operation must fail and let the user resubmit.
func NewAllocationContention(key string, attempts int) *AppError {
	return &AppError{
		Code:       CodeAllocationContention,
		Message:    "Document number could not be allocated, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"sequence": key, "attempts": attempts},
		Retryable:  true,
	}
}

// NewDatabase wraps a storage failure (hides details from client)
func NewDatabase(err error) *AppError {
	return &AppError{
		Code:       CodeDatabase,
		Message:    "Sequence storage error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTimeout wraps context cancellation and deadline errors
func NewTimeout(err error) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    "Operation timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Retryable:  true,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap converts any error into the taxonomy. AppErrors pass through,
// context errors become timeouts, everything else is a storage error.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(err)
	}
	return NewDatabase(err)
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// IsRetryable reports whether the caller may resubmit the same request.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

// FieldErrors returns the field-level messages of a validation error.
func FieldErrors(err error) map[string]string {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Details == nil {
		return nil
	}
	fields, _ := appErr.Details["fields"].(map[string]string)
	return fields
}
