// Package event provides notification sources and their attach-only
// notification points.
//
// A Source is owned by the publisher: only the owner can Emit. Consumers get
// the read-only Point and attach callbacks to it:
//
//	src := event.NewSource[Order]("orders")
//	sub, _ := src.Point().Attach(func(o Order) error {
//	    return index(o)
//	})
//	defer sub.Dispose()
//
//	err := src.Emit(order) // first callback error, if any
//
// AsyncSource is the context-aware counterpart: callbacks receive the
// emitter's context and Emit waits for each of them in turn.
//
// Callbacks attached while an emission is running take part from the next
// emission on. A callback disposed during an emission is skipped for the rest
// of it.
package event
