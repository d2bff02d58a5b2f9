package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/eventkit/event"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/observability"
)

// UnhandledError is published on Unhandled when fire-and-forget work fails
// and nobody asked for the error.
type UnhandledError struct {
	// Dispatcher is the name of the dispatcher that ran the work.
	Dispatcher string
	// Err is the failure.
	Err error
}

func (u UnhandledError) Error() string {
	return fmt.Sprintf("unhandled error on dispatcher %s: %v", u.Dispatcher, u.Err)
}

func (u UnhandledError) Unwrap() error { return u.Err }

var (
	unhandledOnce sync.Once
	unhandled     *event.Source[UnhandledError]
)

func unhandledSource() *event.Source[UnhandledError] {
	unhandledOnce.Do(func() {
		unhandled = event.NewSource[UnhandledError]("dispatch.unhandled")
	})
	return unhandled
}

// Unhandled is the process-wide point that receives failures of
// fire-and-forget work without an explicit error handler. With no subscriber
// attached the failure is logged at warn level instead.
func Unhandled() event.Point[UnhandledError] {
	return unhandledSource().Point()
}

// ReportUnhandled publishes err on Unhandled. Subscriber errors are logged and
// never returned, so reporting cannot fail the reporter.
func ReportUnhandled(ctx context.Context, dispatcher string, err error) {
	observability.Default().RecordUnhandled(ctx, dispatcher)

	log := logger.Get("eventkit.dispatch")
	src := unhandledSource()
	if src.Len() == 0 {
		log.Warn("unhandled dispatcher error", logger.Fields(
			logger.FieldDispatcher, dispatcher,
			logger.FieldError, err.Error(),
		))
		return
	}
	if emitErr := src.Emit(UnhandledError{Dispatcher: dispatcher, Err: err}); emitErr != nil {
		log.Error("unhandled error subscriber failed", logger.Fields(
			logger.FieldDispatcher, dispatcher,
			logger.FieldError, emitErr.Error(),
			"original_error", err.Error(),
		))
	}
}
