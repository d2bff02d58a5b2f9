package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime"
)

// AppError is the unified eventkit error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrDisposed   = &AppError{Code: ErrCodeDisposed, Message: "object is disposed"}
	ErrCancelled  = &AppError{Code: ErrCodeCancelled, Message: "operation cancelled"}
	ErrBufferFull = &AppError{Code: ErrCodeBufferFull, Message: "buffer is full", Retryable: true}
)

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Disposed creates an error for an operation invoked on a disposed object.
func Disposed(owner string) *AppError {
	return &AppError{
		Code: ErrCodeDisposed, Message: fmt.Sprintf("%s is disposed", ownerOrDefault(owner)),
		Details: map[string]any{"owner": owner},
	}
}

// Cancelled creates an error for work that was cancelled. The context error,
// if any, is kept as the cause.
func Cancelled(cause error) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: "operation cancelled", Cause: cause,
	}
}

// DispatchFailed creates an error for work a dispatcher refused to schedule.
func DispatchFailed(dispatcher string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDispatchFailed, Message: fmt.Sprintf("dispatcher %s could not schedule work", dispatcher),
		Retryable: true, Details: map[string]any{"dispatcher": dispatcher}, Cause: cause,
	}
}

// BufferFull creates an error for an event dropped by a full buffer.
func BufferFull(name string, capacity int) *AppError {
	return &AppError{
		Code: ErrCodeBufferFull, Message: fmt.Sprintf("%s buffer is full", ownerOrDefault(name)),
		Retryable: true, Details: map[string]any{"name": name, "capacity": capacity},
	}
}

// InvalidInput creates an error for invalid arguments or configuration.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error carrying aggregated validation messages.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause,
	}
}

// Panic converts a recovered panic value into an error, capturing the stack
// of the panicking goroutine. An error value passed to panic is kept as cause.
func Panic(value any) *AppError {
	// 8 KiB covers most stacks; runtime.Stack truncates if needed.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	e := &AppError{
		Code: ErrCodePanic, Message: fmt.Sprintf("panic: %v", value),
		Details: map[string]any{"stack": string(buf[:n])},
	}
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// --- Predicates ---

// HasCode reports whether any error in err's chain is an *AppError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsDisposed reports whether err signals access to a disposed object.
func IsDisposed(err error) bool {
	return HasCode(err, ErrCodeDisposed)
}

// IsPanic reports whether err wraps a recovered panic.
func IsPanic(err error) bool {
	return HasCode(err, ErrCodePanic)
}

// IsCancellation reports whether err is an expected outcome of cancellation
// or disposal rather than a failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return cancellationCodes[appErr.Code]
	}
	return false
}

// As is a re-export of the standard library errors.As, so callers importing
// this package do not need a second errors import.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Is is a re-export of the standard library errors.Is.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func ownerOrDefault(owner string) string {
	if owner == "" {
		return "object"
	}
	return owner
}
