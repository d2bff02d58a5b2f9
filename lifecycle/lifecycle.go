package lifecycle

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/kbukum/eventkit/errors"
)

// Disposable is implemented by everything with an idempotent teardown.
type Disposable interface {
	// Dispose releases the object. Calls after the first have no effect.
	Dispose()
}

// Lifecycle is a one-shot disposal tracker.
//
// The zero value is not usable; create one with New or NewLinked.
type Lifecycle struct {
	owner string

	// mu guards only the disposed flip and the hook list.
	mu       sync.Mutex
	disposed atomic.Bool
	hooks    []*hook
	nextID   uint64

	teardown func()
	ctx      context.Context
	cancel   context.CancelCauseFunc
	done     chan struct{}
	stop     func() bool
}

type hook struct {
	id uint64
	fn func()
}

// New creates a lifecycle for owner. teardown, if non-nil, runs exactly once
// on the first Dispose.
func New(owner string, teardown func()) *Lifecycle {
	return NewLinked(context.Background(), owner, teardown)
}

// NewLinked creates a lifecycle that is disposed automatically when parent
// is cancelled. Disposing the lifecycle never cancels parent.
func NewLinked(parent context.Context, owner string, teardown func()) *Lifecycle {
	ctx, cancel := context.WithCancelCause(parent)
	l := &Lifecycle{
		owner:    owner,
		teardown: teardown,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	if parent.Done() != nil {
		l.stop = context.AfterFunc(parent, l.Dispose)
	}
	return l
}

// Owner returns the name the lifecycle was created with.
func (l *Lifecycle) Owner() string { return l.owner }

// IsDisposed reports whether Dispose has been called.
func (l *Lifecycle) IsDisposed() bool { return l.disposed.Load() }

// Dispose tears the owner down. Safe to call any number of times from any
// goroutine; only the first call has effect.
func (l *Lifecycle) Dispose() {
	l.TryDispose()
}

// TryDispose is Dispose that reports whether this call performed the
// teardown. Under concurrent callers exactly one observes true.
func (l *Lifecycle) TryDispose() bool {
	l.mu.Lock()
	if l.disposed.Load() {
		l.mu.Unlock()
		return false
	}
	l.disposed.Store(true)
	hooks := l.hooks
	l.hooks = nil
	l.mu.Unlock()

	defer close(l.done)
	if l.stop != nil {
		l.stop()
	}
	l.cancel(errors.Disposed(l.owner))
	if l.teardown != nil {
		l.teardown()
	}
	for _, h := range hooks {
		h.fn()
	}
	return true
}

// Context returns the cancellation signal. It is cancelled on the first
// Dispose with an errors.Disposed cause (see context.Cause).
func (l *Lifecycle) Context() context.Context { return l.ctx }

// Done returns a channel closed once teardown has completed.
func (l *Lifecycle) Done() <-chan struct{} { return l.done }

// OnDisposed registers fn to run once when the lifecycle is disposed. If it
// is already disposed fn runs immediately on the calling goroutine. The
// returned function unregisters fn if it has not run yet.
func (l *Lifecycle) OnDisposed(fn func()) (unregister func()) {
	l.mu.Lock()
	if l.disposed.Load() {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.hooks = append(l.hooks, &hook{id: id, fn: fn})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, h := range l.hooks {
			if h.id == id {
				l.hooks = append(l.hooks[:i], l.hooks[i+1:]...)
				return
			}
		}
	}
}

// Guard returns errors.Disposed when the lifecycle is disposed, nil otherwise.
// Entry points that must not run after teardown call it first.
func (l *Lifecycle) Guard() error {
	if l.disposed.Load() {
		return errors.Disposed(l.owner)
	}
	return nil
}

// Func adapts fn into a Disposable whose Dispose runs fn at most once.
func Func(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

type funcDisposable struct {
	once sync.Once
	fn   func()
}

func (f *funcDisposable) Dispose() {
	f.once.Do(f.fn)
}
