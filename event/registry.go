package event

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/kbukum/eventkit/errors"
)

// registry is a copy-on-write callback list shared by the sync and async
// sources. Emission iterates a snapshot, so attach and detach never block on
// or corrupt an emission in progress.
type registry[H any] struct {
	owner string

	mu      sync.Mutex
	closed  bool
	entries []*entry[H]
}

type entry[H any] struct {
	fn     H
	active atomic.Bool
	reg    *registry[H]
}

// Dispose detaches the callback. Safe to call more than once and from inside
// the callback itself.
func (e *entry[H]) Dispose() {
	if !e.active.CompareAndSwap(true, false) {
		return
	}
	e.reg.remove(e)
}

func (r *registry[H]) add(fn H) (*entry[H], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Disposed(r.owner)
	}
	e := &entry[H]{fn: fn, reg: r}
	e.active.Store(true)

	next := make([]*entry[H], len(r.entries), len(r.entries)+1)
	copy(next, r.entries)
	r.entries = append(next, e)
	return e, nil
}

func (r *registry[H]) remove(e *entry[H]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cur := range r.entries {
		if cur == e {
			next := make([]*entry[H], 0, len(r.entries)-1)
			next = append(next, r.entries[:i]...)
			r.entries = append(next, r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry[H]) snapshot() ([]*entry[H], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.Disposed(r.owner)
	}
	return r.entries, nil
}

func (r *registry[H]) close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.closed = true
	r.mu.Unlock()

	for _, e := range entries {
		e.active.Store(false)
	}
}

func (r *registry[H]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
