package observe

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/lifecycle"
)

// Chain is implemented by every *Observer, whatever its payload type.
type Chain interface {
	syncNode() anyNode
}

// AsyncChain is implemented by every *AsyncObserver.
type AsyncChain interface {
	asyncNode() anyNode
}

// Combine merges several chains into one that emits whenever any of them
// does. Disposing the combined stage disposes every input; disposing one
// input only stops its events.
func Combine[T any](obs ...*Observer[T]) *Observer[T] {
	nodes := make([]anyNode, len(obs))
	for i, o := range obs {
		nodes[i] = o.n
	}
	return &Observer[T]{n: combine[T](nodes)}
}

// CombineAs merges chains of different payload types. A payload that is not
// an R arrives as R's zero value.
func CombineAs[R any](obs ...Chain) *Observer[R] {
	nodes := make([]anyNode, len(obs))
	for i, o := range obs {
		nodes[i] = o.syncNode()
	}
	return &Observer[R]{n: combine[R](nodes)}
}

// CombineAsync is Combine for async chains.
func CombineAsync[T any](obs ...*AsyncObserver[T]) *AsyncObserver[T] {
	nodes := make([]anyNode, len(obs))
	for i, o := range obs {
		nodes[i] = o.n
	}
	return &AsyncObserver[T]{n: combine[T](nodes)}
}

// CombineAsyncAs is CombineAs for async chains.
func CombineAsyncAs[R any](obs ...AsyncChain) *AsyncObserver[R] {
	nodes := make([]anyNode, len(obs))
	for i, o := range obs {
		nodes[i] = o.asyncNode()
	}
	return &AsyncObserver[R]{n: combine[R](nodes)}
}

// combine links one adapter per input. An input's downstream is the adapter,
// not the combined stage, so tearing an input down leaves the combined stage
// and its siblings running.
func combine[R any](inputs []anyNode) *node[R] {
	if len(inputs) == 0 {
		panic(errors.InvalidInput("observers", "combine needs at least one stage"))
	}

	child := newNode[R]("combine")
	forward := func(ctx context.Context, v any) error {
		r, _ := v.(R)
		return child.emit(ctx, r)
	}

	var result *multierror.Error
	links := make([]lifecycle.Disposable, 0, len(inputs))
	for i, in := range inputs {
		up, err := in.linkAny(forward, lifecycle.Func(func() {}))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("stage %d: %w", i, err))
			continue
		}
		links = append(links, up)
	}
	if err := result.ErrorOrNil(); err != nil {
		for _, up := range links {
			up.Dispose()
		}
		panic(errors.InvalidInput("observers", err.Error()).WithCause(err))
	}

	child.setUpstream(lifecycle.Func(func() {
		for _, in := range inputs {
			in.Dispose()
		}
	}))
	return child
}
