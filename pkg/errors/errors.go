package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Deployment precondition errors
	ErrPrecondition  ErrorCode = "PRECONDITION"
	ErrBaseNotFound  ErrorCode = "BASE_NOT_FOUND"
	ErrLock          ErrorCode = "LOCK"
	ErrAlreadyLocked ErrorCode = "ALREADY_LOCKED"

	// Collaborator failures
	ErrCheckout       ErrorCode = "CHECKOUT"
	ErrHook           ErrorCode = "HOOK"
	ErrServiceManager ErrorCode = "SERVICE_MANAGER"
	ErrCommand        ErrorCode = "COMMAND_FAILED"

	// FileSystem errors
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"

	// History errors
	ErrHistory ErrorCode = "HISTORY"
)

// DeployError represents a structured error with code and details
type DeployError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DeployError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DeployError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DeployError) Is(target error) bool {
	var targetErr *DeployError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DeployError with the given code and message
func New(code ErrorCode, message string) *DeployError {
	return &DeployError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DeployError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DeployError {
	return &DeployError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DeployError
func Wrap(err error, code ErrorCode, message string) *DeployError {
	if err == nil {
		return nil
	}
	return &DeployError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DeployError {
	if err == nil {
		return nil
	}
	return &DeployError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DeployError) WithDetail(key string, value interface{}) *DeployError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *DeployError) WithDetails(details map[string]interface{}) *DeployError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code.
// The outermost DeployError in the chain decides.
func IsErrorCode(err error, code ErrorCode) bool {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Code == code
	}
	return false
}

// HasErrorCode reports whether any DeployError in the chain carries code.
func HasErrorCode(err error, code ErrorCode) bool {
	for err != nil {
		var deployErr *DeployError
		if !errors.As(err, &deployErr) {
			return false
		}
		if deployErr.Code == code {
			return true
		}
		err = deployErr.Wrapped
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DeployError
func GetErrorCode(err error) ErrorCode {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DeployError
func GetErrorDetails(err error) map[string]interface{} {
	var deployErr *DeployError
	if errors.As(err, &deployErr) {
		return deployErr.Details
	}
	return nil
}

// Cause returns the innermost error of the chain
func Cause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
