package scope

import (
	"context"

	"github.com/kbukum/eventkit/dispatch"
)

// Option configures Run and Go.
type Option func(*options)

type options struct {
	dispatcher dispatch.Dispatcher
	ctx        context.Context
	onError    func(error)
}

// WithDispatcher runs the work on d instead of the scope's dispatcher.
func WithDispatcher(d dispatch.Dispatcher) Option {
	return func(o *options) { o.dispatcher = d }
}

// WithContext also cancels the work when ctx is done. Only ctx's
// cancellation is used; values come from the scope.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithErrorHandler receives failures of work started with Go.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

func (s *Scope) options(opts []Option) options {
	o := options{dispatcher: s.d}
	for _, opt := range opts {
		opt(&o)
	}
	if o.dispatcher == nil {
		o.dispatcher = s.d
	}
	return o
}

// link returns scopeCtx, additionally cancelled by the caller's context when
// one was given. release frees the link.
func (o options) link(scopeCtx context.Context) (ctx context.Context, release func()) {
	if o.ctx == nil {
		return scopeCtx, func() {}
	}
	ctx, cancel := context.WithCancelCause(scopeCtx)
	stop := context.AfterFunc(o.ctx, func() { cancel(context.Cause(o.ctx)) })
	return ctx, func() {
		stop()
		cancel(nil)
	}
}
