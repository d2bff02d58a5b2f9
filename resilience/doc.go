// Package resilience provides the Bulkhead used to bound concurrent work.
//
// A Bulkhead admits up to MaxConcurrent calls at once and parks the excess in
// a bounded FIFO backlog; calls beyond the backlog are rejected rather than
// blocking the caller.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
//	    Name:          "uploads",
//	    MaxConcurrent: 4,
//	    MaxBuffer:     16,
//	})
//	err := bh.Execute(ctx, upload)
package resilience
