package dispatch

import (
	"context"
	"sync"

	"github.com/ef-ds/deque"

	"github.com/kbukum/eventkit/errors"
)

// Executor accepts callbacks to run on some execution context it owns, such
// as an application's main goroutine.
type Executor interface {
	// Post queues fn. It returns an error when fn will never run.
	Post(fn func()) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(fn func()) error

func (f ExecutorFunc) Post(fn func()) error { return f(fn) }

type executorKey struct{}

// WithExecutor returns a context recording exec as the current execution
// context. Context.Execute records its executor this way for the work it
// posts.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, executorKey{}, exec)
}

// ExecutorFrom returns the executor recorded in ctx.
func ExecutorFrom(ctx context.Context) (Executor, bool) {
	exec, ok := ctx.Value(executorKey{}).(Executor)
	return exec, ok
}

// Context marshals work onto the Executor it was constructed with.
type Context struct {
	name string
	exec Executor
}

// NewContext returns a dispatcher posting to exec.
func NewContext(name string, exec Executor) *Context {
	return &Context{name: name, exec: exec}
}

// Capture returns a dispatcher bound to the executor recorded in ctx, i.e.
// the one running the caller. It fails with INVALID_INPUT when ctx carries
// none.
func Capture(ctx context.Context, name string) (*Context, error) {
	exec, ok := ExecutorFrom(ctx)
	if !ok {
		return nil, errors.InvalidInput("ctx", "no executor recorded in context")
	}
	return NewContext(name, exec), nil
}

func (c *Context) Name() string { return c.name }

// Execute posts work to the executor. The work sees ctx with the executor
// recorded, so it can Capture it again.
func (c *Context) Execute(ctx context.Context, work func(context.Context)) error {
	ctx = WithExecutor(ctx, c.exec)
	return c.exec.Post(func() { work(ctx) })
}

// Loop is an Executor whose callbacks run on whichever goroutine calls Run,
// in the order they were posted.
type Loop struct {
	mu      sync.Mutex
	queue   deque.Deque
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post queues fn. It returns errors.Disposed after Close.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.Disposed("loop")
	}
	l.queue.PushBack(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.queue.PopFront()
	if !ok {
		return nil, false
	}
	return v.(func()), true
}

// Run executes posted callbacks on the calling goroutine until ctx is done or
// the loop is closed. After Close it runs what is still queued before
// returning nil; on ctx it returns ctx.Err() and leaves the queue intact.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if fn, ok := l.pop(); ok {
			fn()
			continue
		}
		select {
		case <-l.wake:
		case <-l.stopped:
			for fn, ok := l.pop(); ok; fn, ok = l.pop() {
				fn()
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close rejects further posts and makes Run return once drained.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.once.Do(func() { close(l.stopped) })
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}
