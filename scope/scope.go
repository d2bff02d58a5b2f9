package scope

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/lifecycle"
	"github.com/kbukum/eventkit/logger"
	"github.com/kbukum/eventkit/observability"
)

// Scope groups units of work under one cancellation signal. Disposing a
// scope cancels its work and disposes its descendants; a child never
// cancels its parent.
type Scope struct {
	id     string
	d      dispatch.Dispatcher
	parent *Scope
	lc     *lifecycle.Lifecycle

	mu       sync.Mutex
	children map[*Scope]struct{}
	inflight int
	idle     chan struct{}
}

// New creates a root scope whose work runs on d (dispatch.Default() when
// nil). The scope is disposed when ctx is done.
func New(ctx context.Context, d dispatch.Dispatcher) *Scope {
	if d == nil {
		d = dispatch.Default()
	}
	return newScope(ctx, d, nil)
}

func newScope(ctx context.Context, d dispatch.Dispatcher, parent *Scope) *Scope {
	s := &Scope{
		id:       uuid.NewString(),
		d:        d,
		parent:   parent,
		children: make(map[*Scope]struct{}),
	}
	s.lc = lifecycle.NewLinked(ctx, "scope "+s.id, s.teardown)
	if ctx.Err() != nil {
		s.lc.Dispose()
	}
	return s
}

func (s *Scope) teardown() {
	s.mu.Lock()
	children := make([]*Scope, 0, len(s.children))
	for c := range s.children {
		children = append(children, c)
	}
	s.children = nil
	s.mu.Unlock()

	for _, c := range children {
		c.Dispose()
	}
	if s.parent != nil {
		s.parent.removeChild(s)
	}
	logger.Get("eventkit.scope").Debug("scope disposed", logger.Fields(
		logger.FieldScope, s.id,
		"children", len(children),
	))
}

// Child creates a scope whose cancellation is linked to s. A child of a
// disposed scope starts out disposed.
func (s *Scope) Child() *Scope {
	c := newScope(s.lc.Context(), s.d, s)
	s.mu.Lock()
	if s.children == nil {
		s.mu.Unlock()
		c.Dispose()
		return c
	}
	s.children[c] = struct{}{}
	s.mu.Unlock()
	return c
}

func (s *Scope) removeChild(c *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.children, c)
}

// ID returns the scope's unique id.
func (s *Scope) ID() string { return s.id }

// Context returns the scope's cancellation signal. Its cause after disposal
// is an errors.Disposed error.
func (s *Scope) Context() context.Context { return s.lc.Context() }

// Dispatcher returns the scope's default dispatcher.
func (s *Scope) Dispatcher() dispatch.Dispatcher { return s.d }

func (s *Scope) Dispose()              { s.lc.Dispose() }
func (s *Scope) IsDisposed() bool      { return s.lc.IsDisposed() }
func (s *Scope) Done() <-chan struct{} { return s.lc.Done() }

// Wait blocks until no work started through s is still scheduled or
// running, or until ctx is done. Work of child scopes is not included.
func (s *Scope) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scope) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Scope) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// Run executes work through the scope and returns its future. work sees a
// context cancelled when the scope is disposed or, with WithContext, when
// the caller's context is done. A disposed scope returns a failed future.
func Run[T any](s *Scope, work func(context.Context) (T, error), opts ...Option) *dispatch.Future[T] {
	if err := s.lc.Guard(); err != nil {
		return dispatch.Failed[T](err)
	}
	o := s.options(opts)
	ctx, release := o.link(s.lc.Context())
	return dispatch.Run(ctx, s.track(o.dispatcher, release), func(ctx context.Context) (T, error) {
		ctx, span := observability.StartScopeSpan(ctx, s.id, o.dispatcher.Name())
		v, err := work(ctx)
		observability.EndSpan(span, err)
		return v, err
	})
}

// Go executes work through the scope without waiting for it. Cancellation
// errors are swallowed; other failures go to the WithErrorHandler callback
// or else to dispatch.Unhandled. The returned error reports only a disposed
// scope or a scheduling failure.
func (s *Scope) Go(work func(context.Context) error, opts ...Option) error {
	if err := s.lc.Guard(); err != nil {
		return err
	}
	o := s.options(opts)
	ctx, release := o.link(s.lc.Context())

	var fire []dispatch.FireOption
	if o.onError != nil {
		fire = append(fire, dispatch.WithErrorHandler(o.onError))
	}
	return dispatch.Fire(ctx, s.track(o.dispatcher, release), func(ctx context.Context) error {
		ctx, span := observability.StartScopeSpan(ctx, s.id, o.dispatcher.Name())
		err := work(ctx)
		observability.EndSpan(span, err)
		return err
	}, fire...)
}

func (s *Scope) track(d dispatch.Dispatcher, release func()) dispatch.Dispatcher {
	return &tracked{Dispatcher: d, s: s, release: release}
}

// tracked counts scheduled work for Wait and releases the per-call context
// once the work is done.
type tracked struct {
	dispatch.Dispatcher
	s       *Scope
	release func()
}

func (t *tracked) Execute(ctx context.Context, work func(context.Context)) error {
	t.s.begin()
	err := t.Dispatcher.Execute(ctx, func(ctx context.Context) {
		defer t.s.end()
		defer t.release()
		work(ctx)
	})
	if err != nil {
		t.release()
		t.s.end()
	}
	return err
}
