package observe

import (
	"context"

	"go.uber.org/atomic"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/errors"
)

// UntilOption configures the take-until operators.
type UntilOption func(*untilOptions)

type untilOptions struct {
	continueOnDispose bool
}

// ContinueOnDispose forwards the event that ends the stage before tearing
// it down. Without it that event is dropped.
func ContinueOnDispose() UntilOption {
	return func(o *untilOptions) { o.continueOnDispose = true }
}

func newUntilOptions(opts []UntilOption) untilOptions {
	var o untilOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func selectStage[T, R any](parent *node[T], fn func(context.Context, T) (R, error)) *node[R] {
	return derive(parent, "select", func(child *node[R]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			r, err := fn(ctx, v)
			if err != nil {
				return err
			}
			return child.emit(ctx, r)
		}
	})
}

func where[T any](parent *node[T], pred func(context.Context, T) (bool, error)) *node[T] {
	return derive(parent, "where", func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			ok, err := pred(ctx, v)
			if err != nil || !ok {
				return err
			}
			return child.emit(ctx, v)
		}
	})
}

func tap[T any](parent *node[T], fn func(context.Context, T) error) *node[T] {
	return derive(parent, "do", func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			if err := fn(ctx, v); err != nil {
				return err
			}
			return child.emit(ctx, v)
		}
	})
}

// until disposes the stage on the first event for which match reports true.
// Only one event can end the stage, even under concurrent emitters.
func until[T any](parent *node[T], op string, match func(context.Context, T) (bool, error), o untilOptions) *node[T] {
	var ended atomic.Bool
	return derive(parent, op, func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			hit, err := match(ctx, v)
			if err != nil {
				return err
			}
			if !hit {
				return child.emit(ctx, v)
			}
			if !ended.CompareAndSwap(false, true) {
				return nil
			}
			defer child.Dispose()
			if o.continueOnDispose {
				return child.emit(ctx, v)
			}
			return nil
		}
	})
}

func untilDone[T any](parent *node[T], done <-chan struct{}, o untilOptions) *node[T] {
	child := until(parent, "until_done", func(context.Context, T) (bool, error) {
		select {
		case <-done:
			return true, nil
		default:
			return false, nil
		}
	}, o)
	go func() {
		select {
		case <-done:
			child.Dispose()
		case <-child.lc.Done():
		}
	}()
	return child
}

func untilContext[T any](ctx context.Context, parent *node[T], o untilOptions) *node[T] {
	child := until(parent, "until_context", func(context.Context, T) (bool, error) {
		return ctx.Err() != nil, nil
	}, o)
	stop := context.AfterFunc(ctx, child.Dispose)
	child.onDispose(func() { stop() })
	return child
}

func always[T any](context.Context, T) (bool, error) { return true, nil }

// catch offers errors raised below it to handled. A handled error stops
// propagating; an unhandled one continues upward unchanged.
func catch[T any](parent *node[T], handled func(context.Context, error) bool) *node[T] {
	return derive(parent, "catch", func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			err := child.emit(ctx, v)
			if err != nil && handled(ctx, err) {
				return nil
			}
			return err
		}
	})
}

// dispatchFire schedules downstream on d and returns once scheduled.
// Failures of the scheduled work go to dispatch.Unhandled.
func dispatchFire[T any](parent *node[T], d dispatch.Dispatcher) *node[T] {
	return derive(parent, "dispatch", func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			return dispatch.Fire(ctx, d, func(ctx context.Context) error {
				return child.emit(ctx, v)
			})
		}
	})
}

// dispatchWait schedules downstream on d and waits for it to finish.
// Failures of the scheduled work go to dispatch.Unhandled, not the emitter.
func dispatchWait[T any](parent *node[T], d dispatch.Dispatcher) *node[T] {
	return derive(parent, "dispatch", func(child *node[T]) func(context.Context, T) error {
		return func(ctx context.Context, v T) error {
			done := make(chan struct{})
			err := dispatch.Fire(ctx, d, func(ctx context.Context) error {
				defer close(done)
				if err := child.emit(ctx, v); err != nil && !errors.IsCancellation(err) {
					dispatch.ReportUnhandled(ctx, d.Name(), err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
