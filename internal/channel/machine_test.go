package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusel95/whitenoise/internal/fade"
)

type fakeOutput struct {
	mu      sync.Mutex
	volume  float64
	playing bool
	stopped bool
	closed  bool
}

func (f *fakeOutput) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = v
}

func (f *fakeOutput) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

func (f *fakeOutput) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	f.stopped = false
}

func (f *fakeOutput) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeOutput) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.stopped = true
}

func (f *fakeOutput) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newStoppedMachine(t *testing.T) (*Machine, *fakeOutput) {
	t.Helper()
	m := New("rain", fade.NewFader(100))
	out := &fakeOutput{}
	require.NoError(t, m.CompleteLoad(out))
	return m, out
}

func TestNewStartsLoading(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))
	assert.Equal(t, Loading, m.State())
	assert.Equal(t, "rain", m.ID())
}

func TestCompleteLoad(t *testing.T) {
	m, _ := newStoppedMachine(t)
	assert.Equal(t, Stopped, m.State())

	// A second CompleteLoad is illegal once loaded.
	err := m.CompleteLoad(&fakeOutput{})
	assert.ErrorIs(t, err, ErrNotLoading)
}

func TestFailLoad(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))
	cause := errors.New("file missing")

	m.FailLoad(cause)

	assert.Equal(t, Errored, m.State())
	assert.ErrorIs(t, m.Err(), cause)
}

func TestPlayFromStopped(t *testing.T) {
	m, out := newStoppedMachine(t)

	err := m.Play(context.Background(), 0.6, 0)
	require.NoError(t, err)

	assert.Equal(t, Playing, m.State())
	assert.True(t, out.IsPlaying())
	assert.Equal(t, 0.6, out.Volume())
}

func TestPlayWithoutOutput(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))
	require.NoError(t, m.CompleteLoad(nil))

	err := m.Play(context.Background(), 0.5, 0)
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestPlayWhileLoadingIsNoOp(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))

	err := m.Play(context.Background(), 0.5, 0)
	assert.NoError(t, err)
	assert.Equal(t, Loading, m.State())
}

func TestPlayWhileErroredIsNoOp(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))
	m.FailLoad(errors.New("decode failed"))

	err := m.Play(context.Background(), 0.5, 0)
	assert.NoError(t, err)
	assert.Equal(t, Errored, m.State())
}

func TestPauseFromPlaying(t *testing.T) {
	m, out := newStoppedMachine(t)
	require.NoError(t, m.Play(context.Background(), 0.6, 0))

	err := m.Pause(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, Paused, m.State())
	assert.False(t, out.IsPlaying())
	assert.Equal(t, 0.0, out.Volume())
}

func TestPauseWhileStoppedIsNoOp(t *testing.T) {
	m, _ := newStoppedMachine(t)

	err := m.Pause(context.Background(), 0)
	assert.NoError(t, err)
	assert.Equal(t, Stopped, m.State())
}

func TestPlayRetargetsInFlightFade(t *testing.T) {
	m, out := newStoppedMachine(t)

	firstErr := make(chan error, 1)
	go func() {
		firstErr <- m.Play(context.Background(), 1.0, 5*time.Second)
	}()
	time.Sleep(50 * time.Millisecond)

	// A second Play while already Playing re-targets from the current
	// volume; the first fade is cancelled, not completed.
	err := m.Play(context.Background(), 0.3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.3, out.Volume())
	assert.Equal(t, Playing, m.State())

	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, fade.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("superseded fade did not return")
	}
}

// gatedOutput blocks once inside the SetVolume(0) that ends a pause fade,
// holding the pause between its fade completing and its finalization.
type gatedOutput struct {
	fakeOutput
	armed   atomic.Bool
	reached chan struct{}
	gate    chan struct{}
}

func (g *gatedOutput) SetVolume(v float64) {
	g.fakeOutput.SetVolume(v)
	if v == 0 && g.armed.CompareAndSwap(true, false) {
		close(g.reached)
		<-g.gate
	}
}

func TestPlayDuringPauseFinalizationWins(t *testing.T) {
	out := &gatedOutput{reached: make(chan struct{}), gate: make(chan struct{})}
	m := New("rain", fade.NewFader(100))
	require.NoError(t, m.CompleteLoad(out))
	require.NoError(t, m.Play(context.Background(), 0.8, 0))

	out.armed.Store(true)
	pauseErr := make(chan error, 1)
	go func() {
		pauseErr <- m.Pause(context.Background(), 0)
	}()
	<-out.reached

	// The pause fade has reached zero but has not halted the output yet.
	// A reversal landing in that window must win: the channel stays
	// Playing and the output keeps running.
	require.NoError(t, m.Play(context.Background(), 0.8, 0))
	close(out.gate)

	require.NoError(t, <-pauseErr)
	assert.Equal(t, Playing, m.State())
	assert.True(t, out.IsPlaying())
	assert.Equal(t, 0.8, out.Volume())
}

func TestStopInterruptsPause(t *testing.T) {
	m, out := newStoppedMachine(t)
	require.NoError(t, m.Play(context.Background(), 0.8, 0))

	pauseErr := make(chan error, 1)
	go func() {
		pauseErr <- m.Pause(context.Background(), 5*time.Second)
	}()
	time.Sleep(50 * time.Millisecond)

	m.Stop()

	select {
	case err := <-pauseErr:
		assert.ErrorIs(t, err, fade.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("interrupted pause did not return")
	}

	assert.Equal(t, Stopped, m.State())
	assert.True(t, out.stopped)
}

func TestStopClearsErroredState(t *testing.T) {
	m := New("rain", fade.NewFader(fade.DefaultStepRate))
	m.FailLoad(errors.New("decode failed"))

	m.Stop()

	assert.Equal(t, Stopped, m.State())
	assert.NoError(t, m.Err())
}

func TestStopIsIdempotent(t *testing.T) {
	m, _ := newStoppedMachine(t)

	m.Stop()
	m.Stop()
	assert.Equal(t, Stopped, m.State())
}

func TestToggle(t *testing.T) {
	m, _ := newStoppedMachine(t)
	ctx := context.Background()

	require.NoError(t, m.Toggle(ctx, 0.5, 0, 0))
	assert.Equal(t, Playing, m.State())

	require.NoError(t, m.Toggle(ctx, 0.5, 0, 0))
	assert.Equal(t, Paused, m.State())

	require.NoError(t, m.Toggle(ctx, 0.5, 0, 0))
	assert.Equal(t, Playing, m.State())
}

func TestSetVolumeOnlyWhilePlaying(t *testing.T) {
	m, out := newStoppedMachine(t)

	m.SetVolume(0.9)
	assert.Equal(t, 0.0, out.Volume())

	require.NoError(t, m.Play(context.Background(), 0.5, 0))
	m.SetVolume(0.9)
	assert.Equal(t, 0.9, out.Volume())
}

func TestBeginReload(t *testing.T) {
	m, out := newStoppedMachine(t)

	require.NoError(t, m.BeginReload())
	assert.Equal(t, Loading, m.State())
	assert.True(t, out.closed)

	replacement := &fakeOutput{}
	require.NoError(t, m.CompleteLoad(replacement))
	assert.Equal(t, Stopped, m.State())
}

func TestBeginReloadRequiresStopped(t *testing.T) {
	m, _ := newStoppedMachine(t)
	require.NoError(t, m.Play(context.Background(), 0.5, 0))

	err := m.BeginReload()
	assert.ErrorIs(t, err, ErrNotStopped)
}

func TestCloseReleasesOutput(t *testing.T) {
	m, out := newStoppedMachine(t)
	require.NoError(t, m.Play(context.Background(), 0.5, 0))

	m.Close()

	assert.Equal(t, Stopped, m.State())
	assert.True(t, out.closed)
}
