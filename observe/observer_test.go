package observe

import (
	"context"
	stderrors "errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kbukum/eventkit/dispatch"
	"github.com/kbukum/eventkit/errors"
	"github.com/kbukum/eventkit/event"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder[T any] struct {
	mu    sync.Mutex
	items []T
}

func (r *recorder[T]) add(v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
	return nil
}

func (r *recorder[T]) addCtx(_ context.Context, v T) error { return r.add(v) }

func (r *recorder[T]) get() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

func (r *recorder[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func captureUnhandled(t *testing.T, dispatcher string) *recorder[error] {
	t.Helper()
	rec := &recorder[error]{}
	reg, err := dispatch.Unhandled().Attach(func(u dispatch.UnhandledError) error {
		if u.Dispatcher == dispatcher {
			_ = rec.add(u.Err)
		}
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(reg.Dispose)
	return rec
}

func requirePanicCode(t *testing.T, code errors.ErrorCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value should be an error")
		assert.True(t, errors.HasCode(err, code), err.Error())
	}()
	fn()
}

func newRoot(t *testing.T) (*event.Source[int], *Observer[int]) {
	t.Helper()
	src := event.NewSource[int]("numbers")
	root, err := Observe(src.Point())
	require.NoError(t, err)
	t.Cleanup(root.Dispose)
	return src, root
}

func emitAll(t *testing.T, src *event.Source[int], vs ...int) {
	t.Helper()
	for _, v := range vs {
		require.NoError(t, src.Emit(v))
	}
}

func TestSelectWhereSubscribe(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[string]{}

	even := root.Where(func(v int) bool { return v%2 == 0 })
	Select(even, func(v int) (string, error) { return strconv.Itoa(v * 10), nil }).
		Subscribe(rec.add)

	emitAll(t, src, 1, 2, 3, 4)
	assert.Equal(t, []string{"20", "40"}, rec.get())
}

func TestSelect_ErrorReachesEmitter(t *testing.T) {
	src, root := newRoot(t)
	boom := stderrors.New("boom")
	rec := &recorder[int]{}

	Select(root, func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	}).Subscribe(rec.add)

	require.NoError(t, src.Emit(1))
	assert.ErrorIs(t, src.Emit(2), boom)
	require.NoError(t, src.Emit(3))
	assert.Equal(t, []int{1, 3}, rec.get(), "the chain survives a failed event")
}

func TestDo(t *testing.T) {
	src, root := newRoot(t)
	var seen []int
	rec := &recorder[int]{}
	root.Do(func(v int) { seen = append(seen, v) }).Subscribe(rec.add)

	emitAll(t, src, 1, 2)
	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, []int{1, 2}, rec.get())
}

func TestDispose_Idempotent(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	where := root.Where(func(int) bool { return true })
	sub := where.Subscribe(rec.add)

	emitAll(t, src, 1)
	where.Dispose()
	where.Dispose()

	assert.True(t, where.IsDisposed())
	assert.True(t, sub.IsDisposed(), "downstream is disposed with its parent")
	assert.False(t, root.IsDisposed(), "the parent is never disposed")
	<-where.Done()

	emitAll(t, src, 2)
	assert.Equal(t, []int{1}, rec.get())

	// The parent lost its downstream and accepts a new one.
	again := &recorder[int]{}
	root.Subscribe(again.add)
	emitAll(t, src, 3)
	assert.Equal(t, []int{3}, again.get())
}

func TestDispose_SiblingChainsUnaffected(t *testing.T) {
	src := event.NewSource[int]("numbers")
	first, err := Observe(src.Point())
	require.NoError(t, err)
	second, err := Observe(src.Point())
	require.NoError(t, err)
	defer second.Dispose()

	a, b := &recorder[int]{}, &recorder[int]{}
	first.Where(func(int) bool { return true }).Subscribe(a.add)
	Select(second, func(v int) (int, error) { return v, nil }).Subscribe(b.add)

	emitAll(t, src, 1)
	first.Dispose()
	assert.Equal(t, 1, src.Len())
	emitAll(t, src, 2)

	assert.Equal(t, []int{1}, a.get())
	assert.Equal(t, []int{1, 2}, b.get())
}

func TestSubscriptionDispose_KeepsChain(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	sub := root.Subscribe(rec.add)

	sub.Dispose()
	sub.Dispose()
	emitAll(t, src, 1)

	assert.Empty(t, rec.get())
	assert.False(t, root.IsDisposed())
}

func TestObserve_ClosedSource(t *testing.T) {
	src := event.NewSource[int]("closed")
	src.Close()

	_, err := Observe(src.Point())
	assert.True(t, errors.IsDisposed(err))
}

func TestBuilderMisuse(t *testing.T) {
	_, root := newRoot(t)
	root.Subscribe(func(int) error { return nil })

	requirePanicCode(t, errors.ErrCodeInvalidInput, func() {
		root.Where(func(int) bool { return true })
	})

	root.Dispose()
	requirePanicCode(t, errors.ErrCodeDisposed, func() {
		root.Once()
	})
}

func TestUntil(t *testing.T) {
	tests := []struct {
		name string
		opts []UntilOption
		want []int
	}{
		{"drops the matching event", nil, []int{1, 2}},
		{"continue on dispose", []UntilOption{ContinueOnDispose()}, []int{1, 2, 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src, root := newRoot(t)
			rec := &recorder[int]{}
			stage := root.Until(func(v int) bool { return v >= 3 }, tc.opts...)
			stage.Subscribe(rec.add)

			emitAll(t, src, 1, 2, 3, 4, 5)
			assert.Equal(t, tc.want, rec.get())
			assert.True(t, stage.IsDisposed())
			assert.False(t, root.IsDisposed())
		})
	}
}

func TestOnce(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	once := root.Once()
	once.Subscribe(rec.add)

	emitAll(t, src, 7, 8, 9)
	assert.Equal(t, []int{7}, rec.get())
	assert.True(t, once.IsDisposed())
}

func TestUntilDone(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	stop := make(chan struct{})
	stage := root.UntilDone(stop)
	stage.Subscribe(rec.add)

	emitAll(t, src, 1)
	close(stop)
	require.Eventually(t, stage.IsDisposed, time.Second, 5*time.Millisecond)
	emitAll(t, src, 2)

	assert.Equal(t, []int{1}, rec.get())
}

func TestUntilDone_DisposeStopsWatcher(t *testing.T) {
	_, root := newRoot(t)
	stage := root.UntilDone(make(chan struct{}))
	stage.Dispose()
	// goleak in TestMain fails the package if the watcher goroutine lingers.
}

func TestUntilContext(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	ctx, cancel := context.WithCancel(context.Background())
	stage := root.UntilContext(ctx)
	stage.Subscribe(rec.add)

	emitAll(t, src, 1)
	cancel()
	require.Eventually(t, stage.IsDisposed, time.Second, 5*time.Millisecond)
	emitAll(t, src, 2)

	assert.Equal(t, []int{1}, rec.get())
}

func TestCatch(t *testing.T) {
	boom := stderrors.New("boom")
	build := func(t *testing.T, innerHandles bool) (*event.Source[int], *recorder[int], *recorder[error], *recorder[error]) {
		src, root := newRoot(t)
		rec := &recorder[int]{}
		outer, inner := &recorder[error]{}, &recorder[error]{}

		stage := root.
			Catch(func(err error) bool { _ = outer.add(err); return false }).
			Catch(func(err error) bool { _ = inner.add(err); return innerHandles })
		Select(stage, func(v int) (int, error) {
			if v == 2 {
				return 0, boom
			}
			return v, nil
		}).Subscribe(rec.add)
		return src, rec, inner, outer
	}

	t.Run("handled", func(t *testing.T) {
		src, rec, inner, outer := build(t, true)
		emitAll(t, src, 1, 2, 3)

		assert.Equal(t, []int{1, 3}, rec.get(), "the terminal is skipped for the failed event")
		require.Len(t, inner.get(), 1)
		assert.ErrorIs(t, inner.get()[0], boom)
		assert.Empty(t, outer.get(), "a handled error goes no further")
	})

	t.Run("unhandled", func(t *testing.T) {
		src, _, inner, outer := build(t, false)
		assert.ErrorIs(t, src.Emit(2), boom)
		assert.Len(t, inner.get(), 1)
		assert.Len(t, outer.get(), 1)
	})
}

func TestDispatch(t *testing.T) {
	src, root := newRoot(t)
	w := dispatch.NewWorker("bg")
	defer w.Dispose()
	unhandled := captureUnhandled(t, "bg")

	boom := stderrors.New("boom")
	rec := &recorder[int]{}
	root.Dispatch(w).Subscribe(func(v int) error {
		if v == 2 {
			return boom
		}
		return rec.add(v)
	})

	emitAll(t, src, 1, 2, 3)
	require.Eventually(t, func() bool { return rec.len() == 2 && unhandled.len() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{1, 3}, rec.get())
	assert.ErrorIs(t, unhandled.get()[0], boom)
}

func TestDispatch_SchedulingFailure(t *testing.T) {
	src, root := newRoot(t)
	w := dispatch.NewWorker("gone")
	w.Dispose()
	root.Dispatch(w).Subscribe(func(int) error { return nil })

	err := src.Emit(1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDispatchFailed))
}

func TestToObservable(t *testing.T) {
	src, root := newRoot(t)
	doubled := Select(root, func(v int) (int, error) { return v * 2, nil })
	point := doubled.ToObservable()

	a, b := &recorder[int]{}, &recorder[int]{}
	regA, err := point.Attach(a.add)
	require.NoError(t, err)
	_, err = point.Attach(b.add)
	require.NoError(t, err)

	emitAll(t, src, 1)
	regA.Dispose()
	emitAll(t, src, 2)
	assert.Equal(t, []int{2}, a.get())
	assert.Equal(t, []int{2, 4}, b.get(), "detaching one subscriber leaves the chain alone")

	doubled.Dispose()
	emitAll(t, src, 3)
	assert.Equal(t, []int{2, 4}, b.get())
	_, err = point.Attach(a.add)
	assert.True(t, errors.IsDisposed(err), "disposing the chain closes the point")
}

func TestToAsync(t *testing.T) {
	src, root := newRoot(t)
	rec := &recorder[int]{}
	SelectAsync(root.ToAsync(), func(_ context.Context, v int) (int, error) { return v + 1, nil }).
		ToSync().
		Subscribe(rec.add)

	emitAll(t, src, 1, 2)
	assert.Equal(t, []int{2, 3}, rec.get())
}

func TestToAsync_EmitterWaitsAndSeesErrors(t *testing.T) {
	src, root := newRoot(t)
	boom := stderrors.New("boom")
	finished := false
	root.ToAsync().Subscribe(func(_ context.Context, v int) error {
		finished = true
		if v == 2 {
			return boom
		}
		return nil
	})

	require.NoError(t, src.Emit(1))
	assert.True(t, finished, "the async stages ran before Emit returned")
	assert.ErrorIs(t, src.Emit(2), boom)
}

func TestSignal(t *testing.T) {
	sig := event.NewSignal("refresh")
	root, err := Observe(sig.Point())
	require.NoError(t, err)
	defer root.Dispose()

	fired := 0
	root.Once().Subscribe(func(event.Unit) error {
		fired++
		return nil
	})

	require.NoError(t, sig.Fire())
	require.NoError(t, sig.Fire())
	assert.Equal(t, 1, fired)
}
