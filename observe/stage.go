package observe

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/lifecycle"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/observability"
)

func log() *logger.Logger { return logger.Get("eventkit.observe") }

// Subscription is the handle returned by the terminal Subscribe operators.
type Subscription interface {
	lifecycle.Disposable
	IsDisposed() bool
}

// node is one stage of a chain. Sync and async observers share it; a sync
// chain simply runs with context.Background().
//
// A node has one upstream registration and at most one downstream link.
// Disposing it unlinks it from upstream, runs operator cleanup and then
// disposes downstream. It never disposes its parent.
type node[T any] struct {
	lc *lifecycle.Lifecycle
	op string
	id string

	mu       sync.Mutex
	down     *link[T]
	upstream lifecycle.Disposable
	cleanup  []func()
}

type link[T any] struct {
	handle func(context.Context, T) error
	stage  lifecycle.Disposable
}

func newNode[T any](op string) *node[T] {
	n := &node[T]{op: op, id: uuid.NewString()}
	n.lc = lifecycle.New(op, n.teardown)
	return n
}

func (n *node[T]) teardown() {
	n.mu.Lock()
	up, down, cleanup := n.upstream, n.down, n.cleanup
	n.upstream, n.down, n.cleanup = nil, nil, nil
	n.mu.Unlock()

	if up != nil {
		up.Dispose()
	}
	for _, fn := range cleanup {
		fn()
	}
	if down != nil {
		down.stage.Dispose()
	}
	log().Debug("stage disposed", logger.Fields(
		logger.FieldOperator, n.op,
		logger.FieldStageID, n.id,
	))
}

func (n *node[T]) Dispose()         { n.lc.Dispose() }
func (n *node[T]) IsDisposed() bool { return n.lc.IsDisposed() }

// emit hands v to the downstream link. A disposed or unlinked node swallows
// the event.
func (n *node[T]) emit(ctx context.Context, v T) error {
	if n.lc.IsDisposed() {
		return nil
	}
	n.mu.Lock()
	l := n.down
	n.mu.Unlock()
	if l == nil {
		return nil
	}
	return l.handle(ctx, v)
}

// tryLink installs the downstream link. The returned Disposable removes it
// again and is what the downstream stage holds as its upstream.
func (n *node[T]) tryLink(handle func(context.Context, T) error, down lifecycle.Disposable) (lifecycle.Disposable, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lc.IsDisposed() {
		return nil, errors.Disposed(n.op)
	}
	if n.down != nil {
		return nil, errors.InvalidInput("stage", n.op+" stage already has a downstream stage")
	}
	l := &link[T]{handle: handle, stage: down}
	n.down = l
	return lifecycle.Func(func() { n.unlink(l) }), nil
}

// link is tryLink for fluent builders, where misuse is a programming error.
func (n *node[T]) link(handle func(context.Context, T) error, down lifecycle.Disposable) lifecycle.Disposable {
	up, err := n.tryLink(handle, down)
	if err != nil {
		panic(err)
	}
	return up
}

func (n *node[T]) linkAny(handle func(context.Context, any) error, down lifecycle.Disposable) (lifecycle.Disposable, error) {
	return n.tryLink(func(ctx context.Context, v T) error { return handle(ctx, v) }, down)
}

func (n *node[T]) unlink(l *link[T]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.down == l {
		n.down = nil
	}
}

// setUpstream records the registration that feeds n. If n was disposed in
// the meantime the registration is released at once.
func (n *node[T]) setUpstream(up lifecycle.Disposable) {
	n.mu.Lock()
	if !n.lc.IsDisposed() {
		n.upstream = up
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()
	up.Dispose()
}

// onDispose adds operator cleanup, run after the node is unlinked and
// before its downstream is disposed.
func (n *node[T]) onDispose(fn func()) {
	n.mu.Lock()
	if !n.lc.IsDisposed() {
		n.cleanup = append(n.cleanup, fn)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()
	fn()
}

// derive builds a stage below parent. build receives the new stage and
// returns the handler parent invokes for each event.
func derive[T, R any](parent *node[T], op string, build func(child *node[R]) func(context.Context, T) error) *node[R] {
	child := newNode[R](op)
	child.setUpstream(parent.link(build(child), child))
	return child
}

// passthrough derives a stage that forwards every event unchanged.
func passthrough[T any](parent *node[T], op string) *node[T] {
	return derive(parent, op, func(child *node[T]) func(context.Context, T) error {
		return child.emit
	})
}

// anyNode erases the payload type so stages of different types can feed
// one combined stage.
type anyNode interface {
	linkAny(handle func(context.Context, any) error, down lifecycle.Disposable) (lifecycle.Disposable, error)
	lifecycle.Disposable
}

func recordDropped(ctx context.Context, op, reason string) {
	observability.Default().RecordDropped(ctx, op, reason)
	log().Debug("event dropped", logger.Fields(
		logger.FieldOperator, op,
		logger.FieldReason, reason,
	))
}
