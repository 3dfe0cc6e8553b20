package errors

import (
	"fmt"
)

// ErrorCode represents a specific failure category in the advisory pipeline.
type ErrorCode string

const (
	// ErrCodeTransientUpstream indicates a generation or relay call timed out
	// or returned a non-success status.
	ErrCodeTransientUpstream ErrorCode = "TRANSIENT_UPSTREAM"
	// ErrCodeThreadNotFound indicates a reply carried a thread id that
	// resolves to no known thread link.
	ErrCodeThreadNotFound ErrorCode = "THREAD_NOT_FOUND"
	// ErrCodePendingNotFound indicates an advisor answer referenced a
	// question id with no matching pending entry.
	ErrCodePendingNotFound ErrorCode = "PENDING_NOT_FOUND"
	// ErrCodeMalformedResponse indicates a collaborator returned a response
	// missing expected fields or in an unparsable format.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeOverloaded indicates the generation concurrency bound was hit.
	ErrCodeOverloaded ErrorCode = "OVERLOADED"
)

// AdvisorError represents a structured error for advisory operations.
type AdvisorError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AdvisorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AdvisorError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// TransientUpstream creates a transient upstream failure error.
func TransientUpstream(msg string, cause error) *AdvisorError {
	return &AdvisorError{Code: ErrCodeTransientUpstream, Message: msg, Cause: cause}
}

// ThreadNotFound creates a thread integrity error.
func ThreadNotFound(threadID string) *AdvisorError {
	return &AdvisorError{
		Code:    ErrCodeThreadNotFound,
		Message: fmt.Sprintf("no thread link for thread id %s", threadID),
	}
}

// PendingNotFound creates a pending-question integrity error.
func PendingNotFound(questionID string) *AdvisorError {
	return &AdvisorError{
		Code:    ErrCodePendingNotFound,
		Message: fmt.Sprintf("no pending question %s", questionID),
	}
}

// MalformedResponse creates a malformed collaborator response error.
func MalformedResponse(msg string, cause error) *AdvisorError {
	return &AdvisorError{Code: ErrCodeMalformedResponse, Message: msg, Cause: cause}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AdvisorError {
	return &AdvisorError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Timeout creates a timeout error.
func Timeout(msg string) *AdvisorError {
	return &AdvisorError{Code: ErrCodeTimeout, Message: msg}
}

// Overloaded creates an overloaded error.
func Overloaded(msg string) *AdvisorError {
	return &AdvisorError{Code: ErrCodeOverloaded, Message: msg}
}

// Wrap wraps an existing error with a category code.
func Wrap(cause error, code ErrorCode, msg string) *AdvisorError {
	return &AdvisorError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if advErr, ok := err.(*AdvisorError); ok {
		return advErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AdvisorError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if advErr, ok := err.(*AdvisorError); ok {
		return advErr.Code
	}
	return defaultCode
}
