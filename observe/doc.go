// Package observe builds processing chains on top of event notification
// points.
//
// A chain starts with Observe (or ObserveAsync) and grows one stage per
// operator call. Each stage has one parent and at most one downstream stage.
// Disposing a stage detaches it from its parent and disposes everything
// built on it; the parent and sibling chains keep running.
//
//	src := event.NewSource[Reading]("sensor")
//	root, err := observe.Observe(src.Point())
//	if err != nil {
//	    return err
//	}
//	defer root.Dispose()
//
//	observe.Select(root.Where(func(r Reading) bool { return r.Valid }),
//	    func(r Reading) (float64, error) { return r.Celsius, nil }).
//	    Debounce(250*time.Millisecond, observe.WithDispatcher(ui)).
//	    Subscribe(render)
//
// Synchronous chains run each event to completion on the emitting goroutine.
// Async chains pass a context.Context through every stage and the emitter
// waits for the chain, except where Dispatch, Debounce, ThrottleLatest or
// Limit hand the event off. Errors returned by a stage travel back towards
// the emitter until a Catch stage claims them. Errors raised after a hand-off
// go to dispatch.Unhandled.
//
// Timer-driven operators read time from a benbjohnson/clock Clock, which
// tests replace with WithClock(clock.NewMock()).
package observe
