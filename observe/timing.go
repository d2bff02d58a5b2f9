package observe

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/kbukum/eventkit/dispatch"
)

// TimingOption configures Debounce, Throttle and ThrottleLatest.
type TimingOption func(*timingOptions)

type timingOptions struct {
	dispatcher dispatch.Dispatcher
	clock      clock.Clock
}

// WithDispatcher sets where timer-driven deliveries run. Without it a
// delivery goes back to the executor the event was emitted on, when the
// emission ran under a dispatch.Context, and to dispatch.Default()
// otherwise.
func WithDispatcher(d dispatch.Dispatcher) TimingOption {
	return func(o *timingOptions) { o.dispatcher = d }
}

// WithClock replaces the wall clock, typically with a clock.Mock in tests.
func WithClock(c clock.Clock) TimingOption {
	return func(o *timingOptions) { o.clock = c }
}

func newTimingOptions(opts []TimingOption) timingOptions {
	var o timingOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	return o
}

// target returns the dispatcher for an event emitted with ctx. The default
// pool is only created when a timer actually delivers.
func (o timingOptions) target(ctx context.Context) dispatch.Dispatcher {
	if o.dispatcher != nil {
		return o.dispatcher
	}
	if captured, err := dispatch.Capture(ctx, "captured"); err == nil {
		return captured
	}
	return dispatch.Default()
}

// deliver runs a timer-driven emission on d. There is no emitter to return
// a scheduling failure to, so it is reported as unhandled.
func deliver[T any](ctx context.Context, d dispatch.Dispatcher, child *node[T], v T) {
	err := dispatch.Fire(ctx, d, func(ctx context.Context) error {
		return child.emit(ctx, v)
	})
	if err != nil {
		dispatch.ReportUnhandled(ctx, d.Name(), err)
	}
}

type pendingEvent[T any] struct {
	ctx context.Context
	v   T
}

// debouncer restarts its timer on every event. A timer that was replaced
// carries a stale generation and delivers nothing.
type debouncer[T any] struct {
	delay time.Duration
	opts  timingOptions
	child *node[T]

	mu    sync.Mutex
	timer *clock.Timer
	gen   uint64
}

func debounce[T any](parent *node[T], delay time.Duration, opts []TimingOption) *node[T] {
	return derive(parent, "debounce", func(child *node[T]) func(context.Context, T) error {
		d := &debouncer[T]{delay: delay, opts: newTimingOptions(opts), child: child}
		child.onDispose(d.stop)
		return d.handle
	})
}

func (d *debouncer[T]) handle(ctx context.Context, v T) error {
	p := pendingEvent[T]{ctx: context.WithoutCancel(ctx), v: v}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		recordDropped(ctx, "debounce", "superseded")
	}
	d.gen++
	gen := d.gen
	d.timer = d.opts.clock.AfterFunc(d.delay, func() { d.fire(gen, p) })
	return nil
}

func (d *debouncer[T]) fire(gen uint64, p pendingEvent[T]) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	deliver(p.ctx, d.opts.target(p.ctx), d.child, p.v)
}

func (d *debouncer[T]) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// throttler accepts an event only when limit has passed since the last
// accepted one. Accepted events are forwarded on the emitting goroutine.
type throttler[T any] struct {
	limit time.Duration
	clock clock.Clock
	child *node[T]

	mu   sync.Mutex
	last time.Time
	seen bool
}

func throttle[T any](parent *node[T], limit time.Duration, opts []TimingOption) *node[T] {
	o := newTimingOptions(opts)
	return derive(parent, "throttle", func(child *node[T]) func(context.Context, T) error {
		t := &throttler[T]{limit: limit, clock: o.clock, child: child}
		return t.handle
	})
}

func (t *throttler[T]) handle(ctx context.Context, v T) error {
	t.mu.Lock()
	now := t.clock.Now()
	accept := !t.seen || now.Sub(t.last) >= t.limit
	if accept {
		t.seen = true
		t.last = now
	}
	t.mu.Unlock()

	if !accept {
		recordDropped(ctx, "throttle", "throttled")
		return nil
	}
	return t.child.emit(ctx, v)
}

// latestThrottler is a throttler that keeps the most recent rejected event
// and delivers it when the window reopens, unless a newer accepted event
// supersedes it first.
type latestThrottler[T any] struct {
	limit time.Duration
	opts  timingOptions
	child *node[T]

	mu      sync.Mutex
	last    time.Time
	seen    bool
	pending *pendingEvent[T]
	timer   *clock.Timer
	gen     uint64
}

func throttleLatest[T any](parent *node[T], limit time.Duration, opts []TimingOption) *node[T] {
	return derive(parent, "throttle_latest", func(child *node[T]) func(context.Context, T) error {
		t := &latestThrottler[T]{limit: limit, opts: newTimingOptions(opts), child: child}
		child.onDispose(t.stop)
		return t.handle
	})
}

func (t *latestThrottler[T]) handle(ctx context.Context, v T) error {
	t.mu.Lock()
	now := t.opts.clock.Now()
	if !t.seen || now.Sub(t.last) >= t.limit {
		t.seen = true
		t.last = now
		superseded := t.pending != nil
		t.cancelLocked()
		t.mu.Unlock()

		if superseded {
			recordDropped(ctx, "throttle_latest", "superseded")
		}
		return t.child.emit(ctx, v)
	}

	superseded := t.pending != nil
	t.pending = &pendingEvent[T]{ctx: context.WithoutCancel(ctx), v: v}
	if t.timer == nil {
		gen := t.gen
		t.timer = t.opts.clock.AfterFunc(t.last.Add(t.limit).Sub(now), func() { t.flush(gen) })
	}
	t.mu.Unlock()

	if superseded {
		recordDropped(ctx, "throttle_latest", "superseded")
	}
	return nil
}

func (t *latestThrottler[T]) flush(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.pending == nil {
		t.mu.Unlock()
		return
	}
	p := t.pending
	t.pending = nil
	t.timer = nil
	t.gen++
	t.last = t.opts.clock.Now()
	t.mu.Unlock()

	deliver(p.ctx, t.opts.target(p.ctx), t.child, p.v)
}

// cancelLocked drops the pending event and invalidates its timer.
func (t *latestThrottler[T]) cancelLocked() {
	t.pending = nil
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *latestThrottler[T]) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}
