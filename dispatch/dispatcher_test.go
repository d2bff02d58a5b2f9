package dispatch

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kbukum/eventkit/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_Sync(t *testing.T) {
	f := Run(context.Background(), Sync, func(context.Context) (int, error) {
		return 42, nil
	})

	select {
	case <-f.Done():
	default:
		t.Fatal("sync work must complete before Run returns")
	}
	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRun_PanicBecomesError(t *testing.T) {
	f := Run(context.Background(), Sync, func(context.Context) (int, error) {
		panic("boom")
	})

	_, err := f.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsPanic(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_CancelledContextSkipsWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	f := Run(ctx, Sync, func(context.Context) (int, error) {
		ran = true
		return 1, nil
	})

	assert.False(t, ran)
	assert.True(t, errors.IsCancellation(f.Err()))
}

func TestRun_SchedulingFailure(t *testing.T) {
	w := NewWorker("closed")
	w.Dispose()

	f := Run(context.Background(), w, func(context.Context) (int, error) { return 1, nil })
	err := f.Err()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDispatchFailed))
	assert.True(t, errors.IsDisposed(err))
}

func TestFuture(t *testing.T) {
	v, err := Completed("ok").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := stderrors.New("boom")
	assert.ErrorIs(t, Failed[int](boom).Err(), boom)

	pending := newFuture[int]()
	assert.NoError(t, pending.Err(), "Err is nil until completion")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFire_ErrorHandler(t *testing.T) {
	boom := stderrors.New("boom")
	var got error
	err := Fire(context.Background(), Sync, func(context.Context) error { return boom },
		WithErrorHandler(func(err error) { got = err }))

	require.NoError(t, err)
	assert.ErrorIs(t, got, boom)
}

func TestFire_UnhandledPoint(t *testing.T) {
	var got []UnhandledError
	reg, err := Unhandled().Attach(func(u UnhandledError) error {
		got = append(got, u)
		return nil
	})
	require.NoError(t, err)
	defer reg.Dispose()

	boom := stderrors.New("boom")
	require.NoError(t, Fire(context.Background(), NewSync("inline"), func(context.Context) error { return boom }))

	require.Len(t, got, 1)
	assert.Equal(t, "inline", got[0].Dispatcher)
	assert.ErrorIs(t, got[0], boom)
}

func TestFire_CancellationNotReported(t *testing.T) {
	reported := 0
	reg, err := Unhandled().Attach(func(UnhandledError) error {
		reported++
		return nil
	})
	require.NoError(t, err)
	defer reg.Dispose()

	handled := 0
	onErr := WithErrorHandler(func(error) { handled++ })

	require.NoError(t, Fire(context.Background(), Sync, func(context.Context) error { return context.Canceled }))
	require.NoError(t, Fire(context.Background(), Sync, func(context.Context) error { return errors.Disposed("stage") }, onErr))
	require.NoError(t, Fire(context.Background(), Sync, func(context.Context) error { return errors.Cancelled(nil) }, onErr))

	assert.Zero(t, reported)
	assert.Zero(t, handled)
}

func TestFire_PanicReported(t *testing.T) {
	var got error
	require.NoError(t, Fire(context.Background(), Sync, func(context.Context) error {
		panic(stderrors.New("kaboom"))
	}, WithErrorHandler(func(err error) { got = err })))

	assert.True(t, errors.IsPanic(got))
}

func TestFire_SchedulingFailureReturned(t *testing.T) {
	p := NewPool("stopped", 1)
	require.NoError(t, p.Stop(context.Background()))

	err := Fire(context.Background(), p, func(context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.IsDisposed(err))
}

func TestReportUnhandled_NoSubscriberLogs(t *testing.T) {
	// Must not panic or block without subscribers.
	ReportUnhandled(context.Background(), "nobody", stderrors.New("lost"))
}

func TestReportUnhandled_SubscriberErrorSwallowed(t *testing.T) {
	reg, err := Unhandled().Attach(func(UnhandledError) error { return stderrors.New("subscriber broke") })
	require.NoError(t, err)
	defer reg.Dispose()

	ReportUnhandled(context.Background(), "x", stderrors.New("lost"))
}

func TestPool_RunsConcurrently(t *testing.T) {
	p := NewPool("pool", 2)
	defer p.Dispose()

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})

	futures := make([]*Future[int], 2)
	for i := range futures {
		i := i
		futures[i] = Run(context.Background(), p, func(context.Context) (int, error) {
			started.Done()
			<-release
			return i, nil
		})
	}

	waitOrFail(t, &started)
	close(release)

	for i, f := range futures {
		v, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestPool_StopRejectsWork(t *testing.T) {
	p := NewPool("pool", 1)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, p.Stop(context.Background()))

	err := p.Execute(context.Background(), func(context.Context) {})
	assert.True(t, errors.IsDisposed(err))
	assert.True(t, errors.IsDisposed(p.Start(context.Background())))
	assert.Equal(t, "unhealthy", string(p.Health(context.Background()).Status))
}

func TestDefault(t *testing.T) {
	d := Default()
	require.Same(t, d, Default())
	assert.Equal(t, "default", d.Name())

	v, err := Run(context.Background(), d, func(context.Context) (string, error) {
		return "pooled", nil
	}).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pooled", v)
}

func TestDefault_WorkMayWaitOnOtherWork(t *testing.T) {
	const n = DefaultPoolSize + 44
	var running sync.WaitGroup
	running.Add(n)
	all := make(chan struct{})
	go func() {
		running.Wait()
		close(all)
	}()

	futures := make([]*Future[bool], n)
	for i := range futures {
		futures[i] = Run(context.Background(), Default(), func(context.Context) (bool, error) {
			running.Done()
			select {
			case <-all:
				return true, nil
			case <-time.After(5 * time.Second):
				return false, nil
			}
		})
	}
	for _, f := range futures {
		sawAll, err := f.Wait(context.Background())
		require.NoError(t, err)
		require.True(t, sawAll, "every item runs at once on the default pool")
	}
}

func TestPool_Unbounded(t *testing.T) {
	p := NewPool("elastic", 0)
	assert.True(t, p.Unbounded())
	sized := NewPool("sized", 1)
	defer sized.Dispose()
	assert.False(t, sized.Unbounded())

	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Execute(context.Background(), func(context.Context) {
			started.Done()
			<-release
		}))
	}
	waitOrFail(t, &started)
	assert.Equal(t, "unbounded", p.Health(context.Background()).Details["workers"])

	stopped := make(chan error, 1)
	go func() { stopped <- p.Stop(context.Background()) }()
	close(release)
	require.NoError(t, <-stopped, "Stop waits for running items")
	assert.True(t, errors.IsDisposed(p.Execute(context.Background(), func(context.Context) {})))
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting")
	}
}
