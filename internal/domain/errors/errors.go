// Package errors defines application-level error types carrying HTTP and
// business codes, mapped to responses by the delivery layer.
package errors

import (
	"net/http"

	"fieldtrack/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// Tracker-related errors
	ErrTrackerNotFound = NewBaseError(
		http.StatusNotFound,
		"TRACKER_NOT_FOUND",
		"Tracker not found",
		"",
	)

	ErrTrackerInactive = NewBaseError(
		http.StatusUnauthorized,
		"TRACKER_INACTIVE",
		"Tracker is deactivated",
		"",
	)

	ErrTrackerAlreadyExists = NewBaseError(
		http.StatusConflict,
		"TRACKER_ALREADY_EXISTS",
		"A tracker with this name already exists",
		"",
	)

	// Authentication-related errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid tracker ID or API key",
		"",
	)

	ErrSecretHashFailed = NewBaseError(
		http.StatusInternalServerError,
		"SECRET_HASH_FAILED",
		"Credential processing error",
		"",
	)

	// Zone-related errors
	ErrZoneNotFound = NewBaseError(
		http.StatusNotFound,
		"ZONE_NOT_FOUND",
		"Zone not found",
		"",
	)

	ErrInvalidGeometry = NewBaseError(
		http.StatusBadRequest,
		"INVALID_GEOMETRY",
		"Zone geometry could not be normalized",
		"",
	)

	// Ingestion-related errors
	ErrInvalidCoordinates = NewBaseError(
		http.StatusBadRequest,
		"INVALID_COORDINATES",
		"Coordinates are outside the valid WGS84 range",
		"",
	)
)

// NewDatabaseExecuteError wraps a low-level database error into an AppError
// with a generic message, preserving the original error as details.
func NewDatabaseExecuteError(err error, message string) *BaseError {
	details := ""
	if err != nil {
		details = err.Error()
	}

	return NewBaseError(
		http.StatusInternalServerError,
		"DATABASE_ERROR",
		message,
		details,
	)
}
