package collection

import (
	"fmt"
	"sync"

	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/event"
)

// ChangeKind says what happened to a list.
type ChangeKind string

const (
	KindAdd     ChangeKind = "add"
	KindRemove  ChangeKind = "remove"
	KindMove    ChangeKind = "move"
	KindReplace ChangeKind = "replace"
	KindReset   ChangeKind = "reset"
)

// Change describes one mutation. Indexes that do not apply are -1.
type Change[T any] struct {
	Kind     ChangeKind
	NewItems []T
	OldItems []T
	NewIndex int
	OldIndex int
}

// List is a slice that announces every mutation on Changes. Notifications
// are delivered after the mutation on the mutating goroutine, in mutation
// order even under concurrent writers. Observers may read the list but must
// not mutate it from a notification.
type List[T any] struct {
	// notify is held across a mutation and its notification.
	notify  sync.Mutex
	mu      sync.RWMutex
	items   []T
	changes *event.Source[Change[T]]
}

// NewList creates a list holding a copy of items.
func NewList[T any](name string, items ...T) *List[T] {
	return &List[T]{
		items:   append([]T(nil), items...),
		changes: event.NewSource[Change[T]](name),
	}
}

// Changes is the point to observe mutations on.
func (l *List[T]) Changes() event.Point[Change[T]] { return l.changes.Point() }

// mutate applies fn under the write lock and announces its change before
// another mutation can start.
func (l *List[T]) mutate(fn func() (Change[T], error)) error {
	l.notify.Lock()
	defer l.notify.Unlock()

	l.mu.Lock()
	c, err := fn()
	l.mu.Unlock()
	if err != nil {
		return err
	}
	return l.changes.Emit(c)
}

// Add appends v.
func (l *List[T]) Add(v T) error {
	return l.mutate(func() (Change[T], error) {
		l.items = append(l.items, v)
		return Change[T]{Kind: KindAdd, NewItems: []T{v}, NewIndex: len(l.items) - 1, OldIndex: -1}, nil
	})
}

// Insert places v at index, shifting later items up.
func (l *List[T]) Insert(index int, v T) error {
	return l.mutate(func() (Change[T], error) {
		if index < 0 || index > len(l.items) {
			return Change[T]{}, outOfRange(index, len(l.items)+1)
		}
		var zero T
		l.items = append(l.items, zero)
		copy(l.items[index+1:], l.items[index:])
		l.items[index] = v
		return Change[T]{Kind: KindAdd, NewItems: []T{v}, NewIndex: index, OldIndex: -1}, nil
	})
}

// RemoveAt removes the item at index.
func (l *List[T]) RemoveAt(index int) error {
	return l.mutate(func() (Change[T], error) {
		if index < 0 || index >= len(l.items) {
			return Change[T]{}, outOfRange(index, len(l.items))
		}
		old := l.items[index]
		l.items = append(l.items[:index], l.items[index+1:]...)
		return Change[T]{Kind: KindRemove, OldItems: []T{old}, NewIndex: -1, OldIndex: index}, nil
	})
}

// Move relocates the item at from so that it ends up at to.
func (l *List[T]) Move(from, to int) error {
	return l.mutate(func() (Change[T], error) {
		n := len(l.items)
		if from < 0 || from >= n {
			return Change[T]{}, outOfRange(from, n)
		}
		if to < 0 || to >= n {
			return Change[T]{}, outOfRange(to, n)
		}
		v := l.items[from]
		if from < to {
			copy(l.items[from:to], l.items[from+1:to+1])
		} else {
			copy(l.items[to+1:from+1], l.items[to:from])
		}
		l.items[to] = v
		return Change[T]{Kind: KindMove, NewItems: []T{v}, OldItems: []T{v}, NewIndex: to, OldIndex: from}, nil
	})
}

// Replace swaps the item at index for v.
func (l *List[T]) Replace(index int, v T) error {
	return l.mutate(func() (Change[T], error) {
		if index < 0 || index >= len(l.items) {
			return Change[T]{}, outOfRange(index, len(l.items))
		}
		old := l.items[index]
		l.items[index] = v
		return Change[T]{Kind: KindReplace, NewItems: []T{v}, OldItems: []T{old}, NewIndex: index, OldIndex: index}, nil
	})
}

// Clear empties the list and announces a reset.
func (l *List[T]) Clear() error {
	return l.mutate(func() (Change[T], error) {
		l.items = nil
		return Change[T]{Kind: KindReset, NewIndex: -1, OldIndex: -1}, nil
	})
}

// Items returns a copy of the contents.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the item at index.
func (l *List[T]) At(index int) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 0 || index >= len(l.items) {
		var zero T
		return zero, outOfRange(index, len(l.items))
	}
	return l.items[index], nil
}

// Close detaches every observer of Changes.
func (l *List[T]) Close() { l.changes.Close() }

func outOfRange(index, n int) error {
	return errors.InvalidInput("index", fmt.Sprintf("%d out of range [0,%d)", index, n))
}
