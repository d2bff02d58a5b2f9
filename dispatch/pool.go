package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/gammazero/workerpool"

	"github.com/kbukum/eventkit/component"
	"github.com/kbukum/eventkit/errors"
)

// DefaultPoolSize is the worker count configured pools get when none is set.
const DefaultPoolSize = 256

// Pool runs work on a set of goroutines. A sized pool keeps that many workers
// and queues the rest in an unbounded queue, so Execute never blocks. An
// unbounded pool starts a goroutine per item, so work may block on other
// work in the same pool without starving it.
type Pool struct {
	name string
	wp   *workerpool.WorkerPool // nil when unbounded
	wg   sync.WaitGroup

	// mu orders Submit against Stop; submitting to a stopped workerpool
	// panics.
	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with size workers. A size below 1 creates an
// unbounded pool.
func NewPool(name string, size int) *Pool {
	if size < 1 {
		return &Pool{name: name}
	}
	return &Pool{name: name, wp: workerpool.New(size)}
}

// Unbounded reports whether the pool runs every item on its own goroutine.
func (p *Pool) Unbounded() bool { return p.wp == nil }

// Name returns the pool name.
func (p *Pool) Name() string { return p.name }

// Execute queues work. It returns errors.Disposed after Stop.
func (p *Pool) Execute(ctx context.Context, work func(context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return errors.Disposed(p.name)
	}
	if p.wp == nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			work(ctx)
		}()
		return nil
	}
	p.wp.Submit(func() { work(ctx) })
	return nil
}

// Start implements component.Component. Pools run from construction.
func (p *Pool) Start(context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return errors.Disposed(p.name)
	}
	return nil
}

// Stop rejects new work and waits for queued work to finish or ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	already := p.stopped
	p.stopped = true
	p.mu.Unlock()
	if already {
		return nil
	}

	done := make(chan struct{})
	go func() {
		if p.wp != nil {
			p.wp.StopWait()
		}
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose stops the pool and waits for queued work.
func (p *Pool) Dispose() {
	_ = p.Stop(context.Background())
}

// Health implements component.Component.
func (p *Pool) Health(context.Context) component.Health {
	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()

	h := component.Health{
		Name:   p.name,
		Status: component.StatusHealthy,
		Details: map[string]any{"workers": "unbounded"},
	}
	if p.wp != nil {
		h.Details["workers"] = p.wp.Size()
		h.Details["waiting"] = p.wp.WaitingQueueSize()
	}
	if stopped {
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	}
	return h
}

// Describe implements component.Describable.
func (p *Pool) Describe() component.Description {
	if p.wp == nil {
		return component.Description{Kind: string(KindPool), Details: "workers=unbounded"}
	}
	return component.Description{Kind: string(KindPool), Details: fmt.Sprintf("workers=%d", p.wp.Size())}
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide unbounded pool used when no dispatcher is
// given. It is created on first use and never stopped.
func Default() Dispatcher {
	defaultOnce.Do(func() {
		defaultPool = NewPool("default", 0)
	})
	return defaultPool
}
