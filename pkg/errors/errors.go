package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches two AppErrors by code and message so sentinel values survive wrapping.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Error classifications
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInvalidState       = "INVALID_STATE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Common error constructors

// InvalidArgument creates a 400 error for malformed or missing input
func InvalidArgument(message string, err error) *AppError {
	return NewAppError(CodeInvalidArgument, message, http.StatusBadRequest, err)
}

// BadRequest is an alias of InvalidArgument kept for request binding failures
func BadRequest(message string, err error) *AppError {
	return InvalidArgument(message, err)
}

// InvalidState creates a 400 error for a rejected state transition
func InvalidState(message string, err error) *AppError {
	return NewAppError(CodeInvalidState, message, http.StatusBadRequest, err)
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusUnauthorized, err)
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return NewAppError(CodeForbidden, message, http.StatusForbidden, err)
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict, err)
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return NewAppError(CodeInternal, message, http.StatusInternalServerError, err)
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError(CodeServiceUnavailable, message, http.StatusServiceUnavailable, err)
}

// Domain-specific errors

var (
	ErrDriverNotFound      = NotFound("Driver not found!", nil)
	ErrBookingNotFound     = NotFound("Booking not found", nil)
	ErrNoWaitingBooking    = NotFound("No waiting booking found", nil)
	ErrNoProgressBooking   = NotFound("No progress booking found", nil)
	ErrPositionNotFound    = NotFound("Position not found", nil)
	ErrBookingNotCompleted = InvalidState("Booking is not completed", nil)
	ErrBookingSameStatus   = InvalidState("Booking already in progress", nil)
	ErrInvalidDriverID     = InvalidArgument("Invalid driver ID format", nil)
	ErrInvalidBookingID    = InvalidArgument("Invalid booking ID format", nil)
	ErrInvalidCoordinates  = InvalidArgument("Invalid data", nil)
	ErrInvalidRadius       = InvalidArgument("Radius must be greater than zero", nil)
	ErrInvalidStatus       = InvalidArgument("Invalid booking status", nil)
	ErrMissingToken        = Unauthorized("Authorization header or token query parameter required", nil)
	ErrInvalidToken        = Unauthorized("Invalid token", nil)
	ErrRoleNotAllowed      = Forbidden("You are not authorized", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	// Return generic internal error if not an AppError
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WithCause returns a copy of appErr carrying err as its cause
func WithCause(appErr *AppError, err error) *AppError {
	if appErr == nil {
		return nil
	}
	return &AppError{
		Code:    appErr.Code,
		Message: appErr.Message,
		Status:  appErr.Status,
		Err:     err,
	}
}
