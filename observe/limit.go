package observe

import (
	"context"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/resilience"
)

// Unbounded lets Limit buffer without bound.
const Unbounded = resilience.Unbounded

const limitOp = "limit"

// limit bounds concurrent downstream calls with a bulkhead. An event that
// finds a free slot runs on the emitter's goroutine and its error propagates
// as usual. A buffered event runs later in FIFO order and its error goes to
// dispatch.Unhandled, as does a panic there. Events arriving with the buffer
// full or after disposal are dropped.
func limit[T any](parent *node[T], maxConcurrent, maxBuffer int) *node[T] {
	if maxConcurrent <= 0 {
		panic(errors.InvalidInput("maxConcurrent", "must be positive"))
	}
	if maxBuffer < Unbounded {
		panic(errors.InvalidInput("maxBuffer", "must be zero, positive or Unbounded"))
	}

	return derive(parent, limitOp, func(child *node[T]) func(context.Context, T) error {
		b := resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          limitOp,
			MaxConcurrent: maxConcurrent,
			MaxBuffer:     maxBuffer,
			OnReject: func(string) {
				recordDropped(context.Background(), limitOp, "buffer_full")
			},
			OnError: func(name string, err error) {
				if !errors.IsCancellation(err) {
					dispatch.ReportUnhandled(context.Background(), name, err)
				}
			},
		})
		child.onDispose(func() {
			if n := b.Close(); n > 0 {
				log().Debug("discarded buffered events", logger.Fields(
					logger.FieldOperator, limitOp,
					"count", n,
				))
			}
		})

		return func(ctx context.Context, v T) error {
			err := b.Execute(ctx, func(ctx context.Context) error {
				return child.emit(ctx, v)
			})
			if errors.Is(err, resilience.ErrBulkheadFull) || errors.IsDisposed(err) {
				return nil
			}
			return err
		}
	})
}
