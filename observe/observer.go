package observe

import (
	"context"
	"time"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/event"
)

// Observer is a stage of a synchronous chain. Every event is processed on
// the emitting goroutine unless an operator hands it off.
//
// Builder methods panic with an *errors.AppError when called on a disposed
// stage or on a stage that already has a downstream stage.
type Observer[T any] struct {
	n *node[T]
}

// Observe attaches a root stage to p. It fails with errors.Disposed when the
// source behind p is closed.
func Observe[T any](p event.Point[T]) (*Observer[T], error) {
	n := newNode[T]("observe")
	reg, err := p.Attach(func(v T) error {
		return n.emit(context.Background(), v)
	})
	if err != nil {
		return nil, err
	}
	n.setUpstream(reg)
	return &Observer[T]{n: n}, nil
}

// Dispose detaches the stage and disposes everything built on it.
func (o *Observer[T]) Dispose() { o.n.Dispose() }

// IsDisposed reports whether the stage has been disposed.
func (o *Observer[T]) IsDisposed() bool { return o.n.IsDisposed() }

// Done is closed once the stage has been torn down.
func (o *Observer[T]) Done() <-chan struct{} { return o.n.lc.Done() }

func (o *Observer[T]) syncNode() anyNode { return o.n }

// Select maps every payload through fn. An error from fn propagates to the
// emitter.
func Select[T, R any](o *Observer[T], fn func(T) (R, error)) *Observer[R] {
	return &Observer[R]{n: selectStage(o.n, func(_ context.Context, v T) (R, error) {
		return fn(v)
	})}
}

// Where forwards only payloads for which pred is true.
func (o *Observer[T]) Where(pred func(T) bool) *Observer[T] {
	return &Observer[T]{n: where(o.n, func(_ context.Context, v T) (bool, error) {
		return pred(v), nil
	})}
}

// Do calls fn for every payload and then forwards it.
func (o *Observer[T]) Do(fn func(T)) *Observer[T] {
	return &Observer[T]{n: tap(o.n, func(_ context.Context, v T) error {
		fn(v)
		return nil
	})}
}

// Until disposes the stage on the first payload for which pred is true.
func (o *Observer[T]) Until(pred func(T) bool, opts ...UntilOption) *Observer[T] {
	return &Observer[T]{n: until(o.n, "until", func(_ context.Context, v T) (bool, error) {
		return pred(v), nil
	}, newUntilOptions(opts))}
}

// UntilDone disposes the stage when done is closed.
func (o *Observer[T]) UntilDone(done <-chan struct{}, opts ...UntilOption) *Observer[T] {
	return &Observer[T]{n: untilDone(o.n, done, newUntilOptions(opts))}
}

// UntilContext disposes the stage when ctx is done.
func (o *Observer[T]) UntilContext(ctx context.Context, opts ...UntilOption) *Observer[T] {
	return &Observer[T]{n: untilContext(ctx, o.n, newUntilOptions(opts))}
}

// Once forwards the first payload and then disposes the stage.
func (o *Observer[T]) Once() *Observer[T] {
	return &Observer[T]{n: until(o.n, "once", always[T], untilOptions{continueOnDispose: true})}
}

// Dispatch continues the chain on d and returns to the emitter as soon as
// the work is scheduled. A scheduling failure is returned to the emitter;
// errors raised further down go to dispatch.Unhandled.
func (o *Observer[T]) Dispatch(d dispatch.Dispatcher) *Observer[T] {
	return &Observer[T]{n: dispatchFire(o.n, d)}
}

// Debounce forwards a payload once delay has passed without another one.
// Only the last payload of a burst survives.
func (o *Observer[T]) Debounce(delay time.Duration, opts ...TimingOption) *Observer[T] {
	return &Observer[T]{n: debounce(o.n, delay, opts)}
}

// Throttle forwards a payload only if limit has passed since the last
// forwarded one and drops the rest.
func (o *Observer[T]) Throttle(limit time.Duration, opts ...TimingOption) *Observer[T] {
	return &Observer[T]{n: throttle(o.n, limit, opts)}
}

// ThrottleLatest is Throttle that also delivers the most recent dropped
// payload when the window reopens, unless a newer payload got through first.
func (o *Observer[T]) ThrottleLatest(limit time.Duration, opts ...TimingOption) *Observer[T] {
	return &Observer[T]{n: throttleLatest(o.n, limit, opts)}
}

// Catch offers errors raised below this stage to handled. Returning true
// stops the error; returning false lets it continue towards the emitter.
func (o *Observer[T]) Catch(handled func(error) bool) *Observer[T] {
	return &Observer[T]{n: catch(o.n, func(_ context.Context, err error) bool {
		return handled(err)
	})}
}

// ToAsync continues the chain with async stages. The sync emitter waits for
// the async stages to finish and receives their errors; put Dispatch after
// ToAsync for fire-and-forget delivery.
func (o *Observer[T]) ToAsync() *AsyncObserver[T] {
	return &AsyncObserver[T]{n: passthrough(o.n, "to_async")}
}

// ToObservable republishes the chain's output as a new notification point.
// Disposing the chain closes the point; detaching from the point leaves the
// chain alone.
func (o *Observer[T]) ToObservable() event.Point[T] {
	src := event.NewSource[T]("observable")
	derive(o.n, "publish", func(child *node[T]) func(context.Context, T) error {
		child.onDispose(src.Close)
		return func(_ context.Context, v T) error { return src.Emit(v) }
	})
	return src.Point()
}

// Subscribe ends the chain with fn. An error from fn propagates to the
// emitter unless a Catch stage claims it.
func (o *Observer[T]) Subscribe(fn func(T) error) Subscription {
	return derive(o.n, "subscribe", func(*node[T]) func(context.Context, T) error {
		return func(_ context.Context, v T) error { return fn(v) }
	})
}
