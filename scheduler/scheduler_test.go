package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/enricher/batch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	ProcessFunc func(ctx context.Context, limit int) (*batch.Result, error)

	calls  atomic.Int32
	called chan int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{called: make(chan int, 100)}
}

func (f *fakeRunner) ProcessPending(ctx context.Context, limit int) (*batch.Result, error) {
	f.calls.Add(1)
	select {
	case f.called <- limit:
	default:
	}
	if f.ProcessFunc != nil {
		return f.ProcessFunc(ctx, limit)
	}
	return &batch.Result{CycleID: "cycle"}, nil
}

func (f *fakeRunner) waitCalls(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		select {
		case <-f.called:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for batch %d of %d", i+1, n)
		}
	}
}

func fastOptions(extra ...Option) []Option {
	return append([]Option{
		WithActiveInterval(5 * time.Millisecond),
		WithPausedInterval(5 * time.Millisecond),
		WithErrorBackoff(5 * time.Millisecond),
		WithJoinTimeout(time.Second),
	}, extra...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrRunnerRequired)

	_, err = New(newFakeRunner(), WithActiveInterval(0))
	assert.ErrorIs(t, err, ErrInvalidInterval)

	s, err := New(newFakeRunner())
	require.NoError(t, err)
	assert.Equal(t, DefaultActiveInterval, s.activeInterval)
	assert.Equal(t, DefaultPausedInterval, s.pausedInterval)
	assert.Equal(t, DefaultErrorBackoff, s.errorBackoff)
	assert.Equal(t, DefaultJoinTimeout, s.joinTimeout)
	assert.False(t, s.Status().Running)
}

func TestStartStop(t *testing.T) {
	runner := newFakeRunner()
	s, err := New(runner, fastOptions(WithBatchLimit(7))...)
	require.NoError(t, err)

	assert.True(t, s.Start())
	assert.False(t, s.Start(), "second start is a no-op")
	assert.True(t, s.Status().Running)

	runner.waitCalls(t, 2)
	assert.True(t, s.Stop())
	assert.False(t, s.Status().Running)
	assert.False(t, s.Stop(), "not running")

	// Restartable after stop.
	assert.True(t, s.Start())
	runner.waitCalls(t, 1)
	assert.True(t, s.Stop())
}

func TestLoopPassesBatchLimit(t *testing.T) {
	runner := newFakeRunner()
	s, err := New(runner, fastOptions(WithBatchLimit(7))...)
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	select {
	case limit := <-runner.called:
		assert.Equal(t, 7, limit)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch run")
	}
}

func TestLoopSurvivesBatchErrors(t *testing.T) {
	runner := newFakeRunner()
	runner.ProcessFunc = func(context.Context, int) (*batch.Result, error) {
		return nil, batch.ErrPersistenceUnavailable
	}
	s, err := New(runner, fastOptions()...)
	require.NoError(t, err)

	s.Start()
	runner.waitCalls(t, 3)
	assert.True(t, s.Status().Running)
	assert.True(t, s.Stop())
}

func TestStopJoinTimeout(t *testing.T) {
	release := make(chan struct{})
	runner := newFakeRunner()
	runner.ProcessFunc = func(context.Context, int) (*batch.Result, error) {
		<-release
		return &batch.Result{}, nil
	}
	s, err := New(runner, fastOptions(WithJoinTimeout(20*time.Millisecond))...)
	require.NoError(t, err)

	s.Start()
	runner.waitCalls(t, 1)

	start := time.Now()
	assert.False(t, s.Stop())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, s.Status().Running)
	close(release)
}

func TestStopCancelsBatchContext(t *testing.T) {
	runner := newFakeRunner()
	runner.ProcessFunc = func(ctx context.Context, _ int) (*batch.Result, error) {
		<-ctx.Done()
		return &batch.Result{Deferred: 1}, nil
	}
	s, err := New(runner, fastOptions()...)
	require.NoError(t, err)

	s.Start()
	runner.waitCalls(t, 1)
	assert.True(t, s.Stop())
}

func TestPauseForever(t *testing.T) {
	runner := newFakeRunner()
	s, err := New(runner, fastOptions()...)
	require.NoError(t, err)

	require.NoError(t, s.Pause(DelayForever))
	st := s.Status()
	assert.True(t, st.Paused)
	assert.Nil(t, st.ResumeAt)

	s.Start()
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, runner.calls.Load(), "paused loop must not run batches")

	s.Resume()
	assert.False(t, s.Status().Paused)
	runner.waitCalls(t, 1)
}

func TestPauseTimedAutoClears(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)}
	s, err := New(newFakeRunner(), WithClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, s.Pause(DelayTenMinutes))
	st := s.Status()
	require.True(t, st.Paused)
	require.NotNil(t, st.ResumeAt)
	assert.Equal(t, clock.Now().Add(10*time.Minute), *st.ResumeAt)

	clock.Advance(5 * time.Minute)
	assert.True(t, s.checkPause())

	clock.Advance(5 * time.Minute)
	// Stored state is reported until the loop checks it.
	assert.True(t, s.Status().Paused)
	assert.False(t, s.checkPause())

	st = s.Status()
	assert.False(t, st.Paused)
	assert.Nil(t, st.ResumeAt)
	assert.False(t, s.checkPause())
}

func TestPauseTimedResumesLoop(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)}
	runner := newFakeRunner()
	s, err := New(runner, fastOptions(WithClock(clock.Now))...)
	require.NoError(t, err)

	require.NoError(t, s.Pause(DelayOneHour))
	s.Start()
	defer s.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, runner.calls.Load())

	clock.Advance(time.Hour)
	runner.waitCalls(t, 1)
	assert.False(t, s.Status().Paused)
}

func TestPauseNoneAndInvalid(t *testing.T) {
	s, err := New(newFakeRunner())
	require.NoError(t, err)

	require.NoError(t, s.Pause(DelayOneDay))
	require.NoError(t, s.Pause(DelayNone))
	assert.False(t, s.Status().Paused)

	err = s.Pause(Delay(-5))
	assert.ErrorIs(t, err, ErrInvalidDelay)
	assert.False(t, s.Status().Paused)
}

func TestPauseNoneWakesPausedLoop(t *testing.T) {
	runner := newFakeRunner()
	s, err := New(runner,
		WithActiveInterval(time.Hour),
		WithPausedInterval(time.Hour),
		WithJoinTimeout(time.Second),
	)
	require.NoError(t, err)

	require.NoError(t, s.Pause(DelayForever))
	s.Start()
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	require.Zero(t, runner.calls.Load())

	require.NoError(t, s.Pause(DelayNone))
	runner.waitCalls(t, 1)
}

func TestPauseRejectsOverflowingDelay(t *testing.T) {
	s, err := New(newFakeRunner())
	require.NoError(t, err)

	err = s.Pause(MaxDelay + 1)
	assert.ErrorIs(t, err, ErrInvalidDelay)
	assert.False(t, s.Status().Paused)

	require.NoError(t, s.Pause(MaxDelay))
	st := s.Status()
	require.NotNil(t, st.ResumeAt)
	assert.True(t, st.ResumeAt.After(time.Now()))
}

func TestRunNowIgnoresPause(t *testing.T) {
	runner := newFakeRunner()
	runner.ProcessFunc = func(_ context.Context, limit int) (*batch.Result, error) {
		return &batch.Result{Attempted: limit, Succeeded: limit}, nil
	}
	s, err := New(runner)
	require.NoError(t, err)
	require.NoError(t, s.Pause(DelayForever))

	result, err := s.RunNow(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestRunNowPropagatesError(t *testing.T) {
	runner := newFakeRunner()
	runner.ProcessFunc = func(context.Context, int) (*batch.Result, error) {
		return nil, errors.New("database gone")
	}
	s, err := New(runner)
	require.NoError(t, err)

	_, err = s.RunNow(context.Background(), 0)
	assert.EqualError(t, err, "database gone")
}
