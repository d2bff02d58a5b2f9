package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Lifecycle errors
const (
	// ErrCodeDisposed indicates an operation on an already-disposed object.
	ErrCodeDisposed ErrorCode = "DISPOSED"
	// ErrCodeCancelled indicates the work was cancelled before it completed.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Dispatch errors
const (
	// ErrCodeDispatchFailed indicates a unit of work could not be scheduled.
	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"
	// ErrCodePanic indicates a unit of work panicked.
	ErrCodePanic ErrorCode = "PANIC"
	// ErrCodeBufferFull indicates an event was dropped because a bounded
	// buffer had no room left.
	ErrCodeBufferFull ErrorCode = "BUFFER_FULL"
)

// Usage errors
const (
	// ErrCodeInvalidInput indicates invalid arguments or configuration.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeDispatchFailed: true,
	ErrCodeBufferFull:     true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

var cancellationCodes = map[ErrorCode]bool{
	ErrCodeDisposed:  true,
	ErrCodeCancelled: true,
}
