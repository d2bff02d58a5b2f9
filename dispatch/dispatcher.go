package dispatch

import (
	"context"
	"time"

	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/observability"
)

// Dispatcher schedules units of work.
type Dispatcher interface {
	// Name identifies the dispatcher in logs and metrics.
	Name() string

	// Execute schedules work and returns without waiting for it unless the
	// strategy runs inline. It returns an error only when work will never
	// run; failures inside work are the closure's concern.
	Execute(ctx context.Context, work func(context.Context)) error
}

// Future is the eventual result of work scheduled with Run.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that already holds v.
func Completed[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.complete(v, nil)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.complete(zero, err)
	return f
}

func (f *Future[T]) complete(v T, err error) {
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the result is available or ctx is done. Giving up on ctx
// does not cancel the work.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err returns the work's error once Done is closed and nil before.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Run schedules work on d and returns its future. A scheduling failure
// completes the future with an errors.DispatchFailed error. A panic in work
// completes it with an errors.Panic error.
func Run[T any](ctx context.Context, d Dispatcher, work func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	name := d.Name()
	err := d.Execute(ctx, func(ctx context.Context) {
		f.complete(invoke(ctx, name, work))
	})
	if err != nil {
		var zero T
		f.complete(zero, errors.DispatchFailed(name, err))
	}
	return f
}

// FireOption configures Fire.
type FireOption func(*fireOptions)

type fireOptions struct {
	onError func(error)
}

// WithErrorHandler routes failures of fire-and-forget work to fn instead of
// the Unhandled point.
func WithErrorHandler(fn func(error)) FireOption {
	return func(o *fireOptions) { o.onError = fn }
}

// Fire schedules work without waiting for it. The returned error is non-nil
// only when work could not be scheduled. A failure of work itself goes to the
// WithErrorHandler callback or else to Unhandled; cancellation-shaped
// failures are dropped.
func Fire(ctx context.Context, d Dispatcher, work func(context.Context) error, opts ...FireOption) error {
	var o fireOptions
	for _, opt := range opts {
		opt(&o)
	}

	name := d.Name()
	err := d.Execute(ctx, func(ctx context.Context) {
		_, err := invoke(ctx, name, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, work(ctx)
		})
		if err == nil || errors.IsCancellation(err) {
			return
		}
		if o.onError != nil {
			o.onError(err)
			return
		}
		ReportUnhandled(ctx, name, err)
	})
	if err != nil {
		return errors.DispatchFailed(name, err)
	}
	return nil
}

// invoke runs work with panic recovery, a span and a duration metric. Work
// whose context is already done is not started.
func invoke[T any](ctx context.Context, dispatcher string, work func(context.Context) (T, error)) (v T, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return v, errors.Cancelled(context.Cause(ctx))
	}

	ctx, span := observability.StartDispatchSpan(ctx, dispatcher)
	start := time.Now()
	status := observability.StatusOK
	defer func() {
		if r := recover(); r != nil {
			err = errors.Panic(r)
			status = observability.StatusPanic
			observability.Default().RecordPanic(ctx, dispatcher)
			logger.Get("eventkit.dispatch").Error("dispatched work panicked", logger.Fields(
				logger.FieldDispatcher, dispatcher,
				logger.FieldError, err.Error(),
			))
		}
		observability.Default().RecordDispatch(ctx, dispatcher, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	v, err = work(ctx)
	switch {
	case err == nil:
	case errors.IsCancellation(err):
		status = observability.StatusCancelled
	default:
		status = observability.StatusError
	}
	return v, err
}
