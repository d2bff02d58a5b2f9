// Package dispatch runs units of work somewhere else and hands back their
// result.
//
// A Dispatcher decides where work runs: NewPool fans out over a bounded
// goroutine pool, NewWorker serializes onto one dedicated goroutine, Sync runs
// on the caller's goroutine, and NewContext marshals onto an explicit
// Executor such as a Loop driven by an application's main goroutine.
//
//	f := dispatch.Run(ctx, worker, func(ctx context.Context) (int, error) {
//	    return compute(ctx)
//	})
//	v, err := f.Wait(ctx)
//
// Fire is the fire-and-forget form. Failures go to a WithErrorHandler
// callback when given, otherwise to the process-wide Unhandled point.
// Cancellation-shaped failures are never reported.
package dispatch
