package observe

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/eventkit/errors"
)

// blockingSink records payloads; the payload 1 blocks until release is
// closed, after signalling started.
func blockingSink(rec *recorder[int], started, release chan struct{}) func(context.Context, int) error {
	return func(ctx context.Context, v int) error {
		if v == 1 {
			close(started)
			<-release
		}
		return rec.addCtx(ctx, v)
	}
}

func TestLimit_DropsWhenBufferFull(t *testing.T) {
	src, root := newAsyncRoot(t)
	rec := &recorder[int]{}
	started, release := make(chan struct{}), make(chan struct{})
	root.Limit(1, 0).Subscribe(blockingSink(rec, started, release))

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started

	require.NoError(t, src.Emit(context.Background(), 2), "a dropped event does not fail the emitter")
	close(release)
	require.NoError(t, <-first)

	assert.Equal(t, []int{1}, rec.get())
}

func TestLimit_BuffersInOrder(t *testing.T) {
	src, root := newAsyncRoot(t)
	rec := &recorder[int]{}
	started, release := make(chan struct{}), make(chan struct{})
	root.Limit(1, 2).Subscribe(blockingSink(rec, started, release))

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started

	for _, v := range []int{2, 3, 4} {
		require.NoError(t, src.Emit(context.Background(), v))
	}
	close(release)
	require.NoError(t, <-first)

	require.Eventually(t, func() bool { return rec.len() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, rec.get(), "4 found the buffer full")
}

func TestLimit_InlineErrorReturned(t *testing.T) {
	src, root := newAsyncRoot(t)
	boom := stderrors.New("boom")
	root.Limit(2, 0).Subscribe(func(context.Context, int) error { return boom })

	assert.ErrorIs(t, src.Emit(context.Background(), 1), boom)
}

func TestLimit_BufferedErrorReported(t *testing.T) {
	src, root := newAsyncRoot(t)
	unhandled := captureUnhandled(t, limitOp)
	boom := stderrors.New("boom")
	started, release := make(chan struct{}), make(chan struct{})

	root.Limit(1, 1).Subscribe(func(_ context.Context, v int) error {
		if v == 1 {
			close(started)
			<-release
			return nil
		}
		return boom
	})

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started
	require.NoError(t, src.Emit(context.Background(), 2))
	close(release)
	require.NoError(t, <-first)

	require.Eventually(t, func() bool { return unhandled.len() == 1 }, time.Second, time.Millisecond)
	assert.ErrorIs(t, unhandled.get()[0], boom)
}

func TestLimit_DisposeDiscardsBuffer(t *testing.T) {
	src, root := newAsyncRoot(t)
	rec := &recorder[int]{}
	started, release := make(chan struct{}), make(chan struct{})
	stage := root.Limit(1, Unbounded)
	stage.Subscribe(blockingSink(rec, started, release))

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started
	require.NoError(t, src.Emit(context.Background(), 2))

	stage.Dispose()
	close(release)
	require.NoError(t, <-first)

	assert.Never(t, func() bool { return rec.len() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []int{1}, rec.get(), "an in-flight event completes")
}

func TestLimit_InvalidArguments(t *testing.T) {
	_, root := newAsyncRoot(t)
	requirePanicCode(t, errors.ErrCodeInvalidInput, func() { root.Limit(0, 0) })
	requirePanicCode(t, errors.ErrCodeInvalidInput, func() { root.Limit(1, -2) })
}

func TestLimit_PanicReleasesSlot(t *testing.T) {
	src, root := newAsyncRoot(t)
	rec := &recorder[int]{}
	root.Limit(1, 0).Subscribe(func(ctx context.Context, v int) error {
		if v == 1 {
			panic("subscriber broke")
		}
		return rec.addCtx(ctx, v)
	})

	assert.Panics(t, func() { _ = src.Emit(context.Background(), 1) }, "an inline panic reaches the emitter")
	require.NoError(t, src.Emit(context.Background(), 2))
	require.NoError(t, src.Emit(context.Background(), 3))
	assert.Equal(t, []int{2, 3}, rec.get())
}

func TestLimit_BufferedPanicReported(t *testing.T) {
	src, root := newAsyncRoot(t)
	unhandled := captureUnhandled(t, limitOp)
	rec := &recorder[int]{}
	started, release := make(chan struct{}), make(chan struct{})

	root.Limit(1, 1).Subscribe(func(ctx context.Context, v int) error {
		switch v {
		case 1:
			close(started)
			<-release
		case 2:
			panic("subscriber broke")
		}
		return rec.addCtx(ctx, v)
	})

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started
	require.NoError(t, src.Emit(context.Background(), 2))
	close(release)
	require.NoError(t, <-first)

	require.Eventually(t, func() bool { return unhandled.len() == 1 }, time.Second, time.Millisecond)
	assert.True(t, errors.IsPanic(unhandled.get()[0]))

	require.NoError(t, src.Emit(context.Background(), 3))
	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, time.Millisecond,
		"the slot comes back after a buffered panic")
	assert.Equal(t, []int{1, 3}, rec.get())
}

func TestLimit_ErrorSurvivesDispose(t *testing.T) {
	src, root := newAsyncRoot(t)
	boom := stderrors.New("boom")
	started, release := make(chan struct{}), make(chan struct{})
	stage := root.Limit(1, 0)
	stage.Subscribe(func(context.Context, int) error {
		close(started)
		<-release
		return boom
	})

	first := make(chan error, 1)
	go func() { first <- src.Emit(context.Background(), 1) }()
	<-started
	stage.Dispose()
	close(release)

	assert.ErrorIs(t, <-first, boom, "an in-flight error is not swallowed by disposal")
	require.NoError(t, src.Emit(context.Background(), 2), "later events are dropped quietly")
}
