package event

import (
	"context"

	"github.com/kbukum/eventkit/lifecycle"
)

// Unit is the payload of zero-argument notifications.
type Unit = struct{}

// Point is the attach-only face of a Source.
type Point[T any] interface {
	// Attach registers fn for every later emission. The returned Disposable
	// detaches it. Attaching to a closed source returns errors.Disposed.
	Attach(fn func(T) error) (lifecycle.Disposable, error)
}

// AsyncPoint is the attach-only face of an AsyncSource.
type AsyncPoint[T any] interface {
	Attach(fn func(context.Context, T) error) (lifecycle.Disposable, error)
}

// Source emits payloads of type T to synchronous callbacks.
type Source[T any] struct {
	reg registry[func(T) error]
}

// NewSource creates a source. name appears in disposed-access errors.
func NewSource[T any](name string) *Source[T] {
	return &Source[T]{reg: registry[func(T) error]{owner: name}}
}

// Emit invokes every attached callback in attachment order on the calling
// goroutine. It stops at the first callback error and returns it.
func (s *Source[T]) Emit(v T) error {
	entries, err := s.reg.snapshot()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.active.Load() {
			continue
		}
		if err := e.fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Attach registers fn. Prefer handing out Point() to consumers.
func (s *Source[T]) Attach(fn func(T) error) (lifecycle.Disposable, error) {
	return s.reg.add(fn)
}

// Point returns the read-only notification point for this source.
func (s *Source[T]) Point() Point[T] {
	return point[T]{s: s}
}

// Close detaches every callback. Later Emit and Attach calls return
// errors.Disposed.
func (s *Source[T]) Close() { s.reg.close() }

// Len returns the number of attached callbacks.
func (s *Source[T]) Len() int { return s.reg.len() }

type point[T any] struct{ s *Source[T] }

func (p point[T]) Attach(fn func(T) error) (lifecycle.Disposable, error) {
	return p.s.Attach(fn)
}

// AsyncSource emits payloads to context-aware callbacks and waits for each.
type AsyncSource[T any] struct {
	reg registry[func(context.Context, T) error]
}

// NewAsyncSource creates an async source.
func NewAsyncSource[T any](name string) *AsyncSource[T] {
	return &AsyncSource[T]{reg: registry[func(context.Context, T) error]{owner: name}}
}

// Emit invokes the attached callbacks one after another, each completing
// before the next starts, and returns the first error. A cancelled ctx stops
// the emission before the next callback.
func (s *AsyncSource[T]) Emit(ctx context.Context, v T) error {
	entries, err := s.reg.snapshot()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.active.Load() {
			continue
		}
		if err := e.fn(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Attach registers fn.
func (s *AsyncSource[T]) Attach(fn func(context.Context, T) error) (lifecycle.Disposable, error) {
	return s.reg.add(fn)
}

// Point returns the read-only notification point for this source.
func (s *AsyncSource[T]) Point() AsyncPoint[T] {
	return asyncPoint[T]{s: s}
}

// Close detaches every callback.
func (s *AsyncSource[T]) Close() { s.reg.close() }

// Len returns the number of attached callbacks.
func (s *AsyncSource[T]) Len() int { return s.reg.len() }

type asyncPoint[T any] struct{ s *AsyncSource[T] }

func (p asyncPoint[T]) Attach(fn func(context.Context, T) error) (lifecycle.Disposable, error) {
	return p.s.Attach(fn)
}

// Signal is a zero-argument source.
type Signal struct {
	*Source[Unit]
}

// NewSignal creates a zero-argument source.
func NewSignal(name string) *Signal {
	return &Signal{Source: NewSource[Unit](name)}
}

// Fire notifies every attached callback.
func (s *Signal) Fire() error { return s.Emit(Unit{}) }

// AsyncSignal is a zero-argument async source.
type AsyncSignal struct {
	*AsyncSource[Unit]
}

// NewAsyncSignal creates a zero-argument async source.
func NewAsyncSignal(name string) *AsyncSignal {
	return &AsyncSignal{AsyncSource: NewAsyncSource[Unit](name)}
}

// Fire notifies every attached callback and waits for them.
func (s *AsyncSignal) Fire(ctx context.Context) error { return s.Emit(ctx, Unit{}) }
