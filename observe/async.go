package observe

import (
	"context"
	"time"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/event"
)

// AsyncObserver is a stage of an async chain. Every callback takes the
// emission's context, and the emitter waits until the chain has finished
// with an event unless Debounce, ThrottleLatest or Limit hands it off.
type AsyncObserver[T any] struct {
	n *node[T]
}

// ObserveAsync attaches a root stage to p.
func ObserveAsync[T any](p event.AsyncPoint[T]) (*AsyncObserver[T], error) {
	n := newNode[T]("observe")
	reg, err := p.Attach(n.emit)
	if err != nil {
		return nil, err
	}
	n.setUpstream(reg)
	return &AsyncObserver[T]{n: n}, nil
}

func (o *AsyncObserver[T]) Dispose()              { o.n.Dispose() }
func (o *AsyncObserver[T]) IsDisposed() bool      { return o.n.IsDisposed() }
func (o *AsyncObserver[T]) Done() <-chan struct{} { return o.n.lc.Done() }

func (o *AsyncObserver[T]) asyncNode() anyNode { return o.n }

// SelectAsync maps every payload through fn.
func SelectAsync[T, R any](o *AsyncObserver[T], fn func(context.Context, T) (R, error)) *AsyncObserver[R] {
	return &AsyncObserver[R]{n: selectStage(o.n, fn)}
}

// Where forwards only payloads for which pred is true.
func (o *AsyncObserver[T]) Where(pred func(context.Context, T) (bool, error)) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: where(o.n, pred)}
}

// Do calls fn for every payload and then forwards it.
func (o *AsyncObserver[T]) Do(fn func(context.Context, T) error) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: tap(o.n, fn)}
}

// Until disposes the stage on the first payload for which pred is true.
func (o *AsyncObserver[T]) Until(pred func(context.Context, T) (bool, error), opts ...UntilOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: until(o.n, "until", pred, newUntilOptions(opts))}
}

func (o *AsyncObserver[T]) UntilDone(done <-chan struct{}, opts ...UntilOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: untilDone(o.n, done, newUntilOptions(opts))}
}

func (o *AsyncObserver[T]) UntilContext(ctx context.Context, opts ...UntilOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: untilContext(ctx, o.n, newUntilOptions(opts))}
}

// Once forwards the first payload and then disposes the stage.
func (o *AsyncObserver[T]) Once() *AsyncObserver[T] {
	return &AsyncObserver[T]{n: until(o.n, "once", always[T], untilOptions{continueOnDispose: true})}
}

// Dispatch continues the chain on d and waits for that work to finish.
// Errors raised further down go to dispatch.Unhandled, not to the emitter;
// a scheduling failure or a done ctx is returned.
func (o *AsyncObserver[T]) Dispatch(d dispatch.Dispatcher) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: dispatchWait(o.n, d)}
}

func (o *AsyncObserver[T]) Debounce(delay time.Duration, opts ...TimingOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: debounce(o.n, delay, opts)}
}

func (o *AsyncObserver[T]) Throttle(limit time.Duration, opts ...TimingOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: throttle(o.n, limit, opts)}
}

func (o *AsyncObserver[T]) ThrottleLatest(limit time.Duration, opts ...TimingOption) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: throttleLatest(o.n, limit, opts)}
}

// Catch offers errors raised below this stage to handled.
func (o *AsyncObserver[T]) Catch(handled func(context.Context, error) bool) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: catch(o.n, handled)}
}

// Limit runs at most maxConcurrent downstream calls at once. Up to maxBuffer
// further events wait in FIFO order (Unbounded for no limit) and the rest
// are dropped without blocking the emitter. A buffered event's error goes to
// dispatch.Unhandled since its emitter has already moved on.
func (o *AsyncObserver[T]) Limit(maxConcurrent, maxBuffer int) *AsyncObserver[T] {
	return &AsyncObserver[T]{n: limit(o.n, maxConcurrent, maxBuffer)}
}

// ToSync continues the chain with synchronous stages, run inline under the
// async emitter's context. Their errors reach the async emitter.
func (o *AsyncObserver[T]) ToSync() *Observer[T] {
	return &Observer[T]{n: passthrough(o.n, "to_sync")}
}

// ToObservable republishes the chain's output as a new async point.
func (o *AsyncObserver[T]) ToObservable() event.AsyncPoint[T] {
	src := event.NewAsyncSource[T]("observable")
	derive(o.n, "publish", func(child *node[T]) func(context.Context, T) error {
		child.onDispose(src.Close)
		return src.Emit
	})
	return src.Point()
}

// Subscribe ends the chain with fn.
func (o *AsyncObserver[T]) Subscribe(fn func(context.Context, T) error) Subscription {
	return derive(o.n, "subscribe", func(*node[T]) func(context.Context, T) error {
		return fn
	})
}
