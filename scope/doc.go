// Package scope layers hierarchical cancellation on top of dispatchers.
//
// A Scope owns a cancellation signal and a default dispatcher. Work started
// with Run or Go observes the scope's context; disposing the scope cancels
// that work and every child scope, never the parent.
//
//	s := scope.New(ctx, dispatch.Default())
//	defer s.Dispose()
//
//	f := scope.Run(s, func(ctx context.Context) (int, error) {
//	    return fetch(ctx)
//	}, scope.WithContext(reqCtx))
//	n, err := f.Wait(ctx)
//
//	_ = s.Go(func(ctx context.Context) error { return refresh(ctx) })
//
// Go reports failures through dispatch.Unhandled unless a handler is given;
// cancellation-shaped errors are never reported.
package scope
