package resilience

import (
	"context"
	"sync"

	"github.com/ef-ds/deque"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/eventkit/errors"
)

// Unbounded lets the backlog grow without limit.
const Unbounded = -1

// ErrBulkheadFull matches (errors.Is) the error returned when a call is
// rejected because every slot is busy and the backlog is at capacity.
var ErrBulkheadFull = errors.ErrBufferFull

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for metrics/logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxBuffer is how many calls may wait for a slot. 0 rejects as soon as
	// every slot is busy; Unbounded never rejects.
	MaxBuffer int
	// OnReject is called when a call is rejected.
	OnReject func(name string)
	// OnAcquire is called when a slot is acquired.
	OnAcquire func(name string)
	// OnRelease is called when a slot is released.
	OnRelease func(name string)
	// OnError receives the result of calls that ran from the backlog, since
	// their callers have already returned. Panics arrive as errors.Panic.
	OnError func(name string, err error)
}

// DefaultBulkheadConfig returns sensible defaults.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{
		Name:          name,
		MaxConcurrent: 10,
		MaxBuffer:     0,
	}
}

type pending struct {
	ctx context.Context
	fn  func(context.Context) error
}

// Bulkhead bounds concurrent calls and keeps a FIFO backlog of calls waiting
// for a slot. Slots are handed from a finishing call straight to the head of
// the backlog, so a new call never overtakes a buffered one.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted

	mu      sync.Mutex
	backlog deque.Deque
	inUse   int
	closed  bool

	drains sync.WaitGroup
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.MaxBuffer < Unbounded {
		config.MaxBuffer = 0
	}

	return &Bulkhead{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent)),
	}
}

// Execute runs fn on the calling goroutine when a slot is free and returns
// its error; a panic in fn releases the slot and propagates to the caller.
// When every slot is busy fn is appended to the backlog and Execute returns
// nil immediately; it later runs on a drain goroutine with a context that
// keeps ctx's values but not its cancellation. When the backlog is full the
// call is rejected with ErrBulkheadFull, and after Close with
// errors.Disposed.
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.Disposed(b.config.Name)
	}
	if b.sem.TryAcquire(1) {
		b.inUse++
		b.mu.Unlock()
		b.notify(b.config.OnAcquire)

		defer b.release()
		return fn(ctx)
	}
	if b.config.MaxBuffer == Unbounded || b.backlog.Len() < b.config.MaxBuffer {
		b.backlog.PushBack(pending{ctx: context.WithoutCancel(ctx), fn: fn})
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	b.notify(b.config.OnReject)
	return errors.BufferFull(b.config.Name, b.config.MaxBuffer)
}

// release hands the slot to the next buffered call or returns it to the
// semaphore when the backlog is empty.
func (b *Bulkhead) release() {
	b.notify(b.config.OnRelease)

	next, ok := b.next()
	if !ok {
		return
	}
	b.drains.Add(1)
	go b.drain(next)
}

func (b *Bulkhead) next() (pending, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		if v, ok := b.backlog.PopFront(); ok {
			return v.(pending), true
		}
	}
	b.inUse--
	b.sem.Release(1)
	return pending{}, false
}

func (b *Bulkhead) drain(p pending) {
	defer b.drains.Done()
	for {
		b.notify(b.config.OnAcquire)
		if err := run(p); err != nil && b.config.OnError != nil {
			b.config.OnError(b.config.Name, err)
		}
		b.notify(b.config.OnRelease)

		var ok bool
		if p, ok = b.next(); !ok {
			return
		}
	}
}

// run calls a buffered fn. Nobody is left to unwind to, so a panic becomes
// an errors.Panic result.
func run(p pending) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Panic(r)
		}
	}()
	return p.fn(p.ctx)
}

func (b *Bulkhead) notify(fn func(string)) {
	if fn != nil {
		fn(b.config.Name)
	}
}

// Close discards the backlog and rejects later calls. Calls already running
// finish normally. It returns the number of discarded calls.
func (b *Bulkhead) Close() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	b.closed = true
	n := b.backlog.Len()
	b.backlog = deque.Deque{}
	return n
}

// Wait blocks until every buffered call handed to a drain goroutine has
// finished, or ctx is done.
func (b *Bulkhead) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.drains.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Available returns the number of available slots.
func (b *Bulkhead) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.MaxConcurrent - b.inUse
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse
}

// Buffered returns the number of calls waiting for a slot.
func (b *Bulkhead) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.backlog.Len()
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
