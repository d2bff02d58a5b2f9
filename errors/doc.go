// Package errors provides the structured error type shared by eventkit
// packages.
//
// Every error raised by the kit itself is an *AppError carrying a
// machine-readable ErrorCode. Callers classify failures with the predicate
// helpers instead of comparing messages:
//
//	if errors.IsDisposed(err) {
//	    // the stage, source or dispatcher was already torn down
//	}
//
// Cancellation-shaped errors (context cancellation, deadline expiry and
// disposal) are expected outcomes of teardown; IsCancellation reports them so
// error sinks can skip them.
package errors
