package dispatch

import (
	"context"
	"sync"

	"github.com/ef-ds/deque"

	"github.com/kbukum/eventkit/component"
	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/lifecycle"
	"github.com/kbukum/eventkit/logger"
)

type workerKey struct{}

type workItem struct {
	ctx  context.Context
	work func(context.Context)
}

// Worker runs work one item at a time, in submission order, on a single
// dedicated goroutine.
//
// Work running on the worker sees a context that identifies it, so work that
// schedules more work onto the same worker runs it inline instead of waiting
// on itself.
type Worker struct {
	name string
	lc   *lifecycle.Lifecycle

	mu     sync.Mutex
	queue  deque.Deque
	closed bool
	wake   chan struct{}
	exited chan struct{}
}

// NewWorker creates a worker and starts its goroutine.
func NewWorker(name string) *Worker {
	w := &Worker{
		name:   name,
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
	w.lc = lifecycle.New(name, nil)
	go w.loop()
	return w
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// OnWorker reports whether ctx belongs to work running on w.
func (w *Worker) OnWorker(ctx context.Context) bool {
	owner, _ := ctx.Value(workerKey{}).(*Worker)
	return owner == w
}

// Execute queues work, or runs it immediately when called from work already
// running on this worker. It returns errors.Disposed once the worker is
// closed.
func (w *Worker) Execute(ctx context.Context, work func(context.Context)) error {
	if w.OnWorker(ctx) {
		work(ctx)
		return nil
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.Disposed(w.name)
	}
	w.queue.PushBack(workItem{ctx: ctx, work: work})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of queued items.
func (w *Worker) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.Len()
}

func (w *Worker) pop() (workItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.queue.PopFront()
	if !ok {
		return workItem{}, false
	}
	return v.(workItem), true
}

func (w *Worker) loop() {
	defer close(w.exited)
	stopping := w.lc.Context().Done()
	for {
		item, ok := w.pop()
		if ok {
			w.run(item)
			continue
		}
		select {
		case <-w.wake:
		case <-stopping:
			// Closed: the queue no longer grows, drain what is left.
			for item, ok := w.pop(); ok; item, ok = w.pop() {
				w.run(item)
			}
			return
		}
	}
}

func (w *Worker) run(item workItem) {
	item.work(context.WithValue(item.ctx, workerKey{}, w))
}

// Close stops accepting work and returns at once; queued work still runs.
// Work running on the worker that wants to shut it down must use Close, since
// Dispose and Stop would wait on themselves.
func (w *Worker) Close() {
	// The flag flips before the loop is signalled so nothing is queued after
	// the final drain.
	w.mu.Lock()
	w.closed = true
	queued := w.queue.Len()
	w.mu.Unlock()

	if w.lc.TryDispose() {
		logger.Get("eventkit.dispatch").Debug("worker closing", logger.Fields(
			logger.FieldDispatcher, w.name,
			"queued", queued,
		))
	}
}

// Dispose closes the worker and waits until queued work has drained and the
// goroutine has exited.
func (w *Worker) Dispose() {
	w.Close()
	<-w.exited
}

// IsDisposed reports whether the worker has been closed.
func (w *Worker) IsDisposed() bool { return w.lc.IsDisposed() }

// Start implements component.Component. The goroutine runs from construction.
func (w *Worker) Start(context.Context) error { return w.lc.Guard() }

// Stop closes the worker and waits for the drain or for ctx to end.
func (w *Worker) Stop(ctx context.Context) error {
	w.Close()
	select {
	case <-w.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health implements component.Component.
func (w *Worker) Health(context.Context) component.Health {
	h := component.Health{
		Name:    w.name,
		Status:  component.StatusHealthy,
		Details: map[string]any{"queued": w.Len()},
	}
	if w.lc.IsDisposed() {
		h.Status = component.StatusUnhealthy
		h.Message = "closed"
	}
	return h
}

// Describe implements component.Describable.
func (w *Worker) Describe() component.Description {
	return component.Description{Kind: string(KindWorker), Details: "fifo"}
}
