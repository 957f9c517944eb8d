package types

import "fmt"

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeServer          ErrorType = "server"
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeInvalidSchedule ErrorType = "invalid_schedule"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeInternal        ErrorType = "internal"
)

// KofyError represents a structured error in the companion core
type KofyError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *KofyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *KofyError) Unwrap() error {
	return e.Cause
}

// IsType reports whether err is a *KofyError of the given type
func IsType(err error, t ErrorType) bool {
	ke, ok := err.(*KofyError)
	return ok && ke.Type == t
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(code, message string) *KofyError {
	return &KofyError{
		Type:    ErrorTypeUnauthorized,
		Code:    code,
		Message: message,
	}
}

// NewNetworkError creates a new network (transient transport) error
func NewNetworkError(code, message string, cause error) *KofyError {
	return &KofyError{
		Type:    ErrorTypeNetwork,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewServerError creates a new remote server error
func NewServerError(code, message string, details map[string]interface{}) *KofyError {
	return &KofyError{
		Type:    ErrorTypeServer,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *KofyError {
	return &KofyError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewInvalidScheduleError creates a reminder precondition error naming the offending field
func NewInvalidScheduleError(field, message string) *KofyError {
	return &KofyError{
		Type:    ErrorTypeInvalidSchedule,
		Code:    ErrCodeInvalidSchedule,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *KofyError {
	return &KofyError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(code, message string) *KofyError {
	return &KofyError{
		Type:    ErrorTypeConflict,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *KofyError {
	return &KofyError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error codes
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeNetworkFailure  = "NETWORK_FAILURE"
	ErrCodeServerError     = "SERVER_ERROR"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidSchedule = "INVALID_SCHEDULE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)
