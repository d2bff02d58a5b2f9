// Package lifecycle provides the one-shot disposal primitive used across
// eventkit.
//
// A Lifecycle tracks a monotonic disposed flag. The first Dispose call runs
// the teardown function, cancels the lifecycle's context and closes the Done
// channel; every later call is a no-op. Dispose is safe to call from any
// number of goroutines concurrently and exactly one of them performs the
// teardown.
//
//	lc := lifecycle.New("worker", func() { close(queue) })
//	defer lc.Dispose()
//
//	if err := lc.Guard(); err != nil {
//	    return err // errors.IsDisposed(err) == true
//	}
package lifecycle
