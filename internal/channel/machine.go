// Package channel implements the per-sound playback state machine.
//
// A Machine wraps exactly one audio output plus one fader and enforces the
// legal transitions between Stopped, Loading, Playing, Paused and Errored.
// It is intentionally channel-local: it knows nothing about sibling
// channels, the global playback phase, or the sleep timer. All
// cross-channel coordination lives in the player package.
package channel

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rusel95/whitenoise/internal/audio"
	"github.com/rusel95/whitenoise/internal/fade"
	"github.com/rusel95/whitenoise/internal/logger"
)

// State represents the playback state of a single channel
type State int

const (
	// Stopped is the initial state; the output is halted and rewound
	Stopped State = iota
	// Loading indicates the channel's source is being prepared
	Loading
	// Playing indicates the output is running (possibly still fading in)
	Playing
	// Paused indicates the output is halted but keeps its position
	Paused
	// Errored indicates the channel's source failed; recoverable via Stop
	Errored
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Errored:
		return "error"
	default:
		return "unknown"
	}
}

// Common errors
var (
	ErrNoOutput   = errors.New("channel has no loaded output")
	ErrNotLoading = errors.New("channel is not in the loading state")
	ErrNotStopped = errors.New("channel is not in the stopped state")
)

// Machine is the state machine for one sound channel.
type Machine struct {
	id    string
	fader *fade.Fader

	mu      sync.Mutex
	state   State
	out     audio.Output
	lastErr error
	ops     uint64
}

// New creates a machine in the Loading state. The catalog completes the
// load with CompleteLoad or FailLoad once the source is (or isn't) ready.
func New(id string, fader *fade.Fader) *Machine {
	return &Machine{
		id:    id,
		fader: fader,
		state: Loading,
	}
}

// ID returns the channel id this machine controls.
func (m *Machine) ID() string {
	return m.id
}

// State returns the current playback state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that moved the machine to Errored, if any.
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// CompleteLoad attaches the loaded output and moves Loading -> Stopped.
func (m *Machine) CompleteLoad(out audio.Output) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Loading {
		return ErrNotLoading
	}
	m.out = out
	m.state = Stopped
	m.lastErr = nil
	return nil
}

// FailLoad records a source load failure and moves Loading -> Errored.
func (m *Machine) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Loading {
		m.logIllegal("failLoad")
		return
	}
	m.lastErr = err
	m.state = Errored

	logger.Log.Error().
		Err(err).
		Str("channel_id", m.id).
		Msg("Channel source load failed")
}

// BeginReload moves Stopped -> Loading so the source can be swapped
// (variant selection). The previous output is closed.
func (m *Machine) BeginReload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Stopped {
		m.logIllegal("beginReload")
		return ErrNotStopped
	}
	if m.out != nil {
		closeOutput(m.id, m.out)
		m.out = nil
	}
	m.state = Loading
	return nil
}

// Play transitions the channel to Playing via a fade-in to target.
//
// From Stopped or Paused the fade starts at volume 0. Calling Play while
// already Playing re-targets the in-flight fade from the current volume,
// which is how a fade-out gets reversed without a click. Illegal calls
// (Loading, Errored) log a warning and return nil.
//
// Play blocks for the duration of the fade. It returns nil when the fade
// reached its target and fade.ErrCancelled when a newer operation took
// over the output.
func (m *Machine) Play(ctx context.Context, target float64, duration time.Duration) error {
	m.mu.Lock()
	switch m.state {
	case Loading, Errored:
		m.logIllegal("play")
		m.mu.Unlock()
		return nil
	case Stopped, Paused:
		if m.out == nil {
			m.mu.Unlock()
			return ErrNoOutput
		}
		m.out.SetVolume(0)
		m.state = Playing
	case Playing:
		// Re-target: the fader cancels the in-flight ramp itself.
	}
	m.ops++
	out := m.out
	m.mu.Unlock()

	out.Play()
	return m.fader.FadeTo(ctx, out, target, duration)
}

// Pause transitions Playing -> Paused via a fade-out to 0, then halts the
// output. Illegal calls log a warning and return nil.
//
// Pause blocks for the duration of the fade. It returns fade.ErrCancelled
// when the fade was interrupted; in that case the channel stays Playing at
// whatever volume the ramp had reached.
func (m *Machine) Pause(ctx context.Context, duration time.Duration) error {
	m.mu.Lock()
	if m.state != Playing {
		m.logIllegal("pause")
		m.mu.Unlock()
		return nil
	}
	out := m.out
	op := m.ops
	m.mu.Unlock()

	if err := m.fader.FadeTo(ctx, out, 0, duration); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Halt only if no Play or Stop took the output over between the fade
	// reaching zero and this lock. A completed fade no longer observes
	// cancellation, so state alone cannot tell: a reversal that slipped in
	// leaves the state Playing while a new ramp is already running.
	if m.state == Playing && m.ops == op {
		m.out.Pause()
		m.state = Paused
	}
	return nil
}

// Stop cancels any in-flight fade and halts the output synchronously, from
// any state. It is the only way out of Errored. Stopping an already
// stopped channel is a no-op.
func (m *Machine) Stop() {
	m.fader.Cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ops++
	if m.state == Stopped {
		return
	}
	if m.state == Loading {
		m.logIllegal("stop")
		return
	}
	if m.out != nil {
		m.out.Stop()
	}
	m.state = Stopped
	m.lastErr = nil
}

// Toggle delegates to Play or Pause based on the current state.
func (m *Machine) Toggle(ctx context.Context, target float64, fadeIn, fadeOut time.Duration) error {
	switch m.State() {
	case Playing:
		return m.Pause(ctx, fadeOut)
	case Stopped, Paused:
		return m.Play(ctx, target, fadeIn)
	default:
		m.logIllegal("toggle")
		return nil
	}
}

// SetVolume adjusts the output volume immediately, with no fade. Used for
// live slider changes while the channel is audible.
func (m *Machine) SetVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Playing || m.out == nil {
		return
	}
	m.out.SetVolume(volume)
}

// Close stops the channel and releases its output.
func (m *Machine) Close() {
	m.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.out != nil {
		closeOutput(m.id, m.out)
		m.out = nil
	}
}

// logIllegal records an attempted illegal transition. These are expected
// under rapid double-taps and never surface to the user.
func (m *Machine) logIllegal(attempted string) {
	logger.Log.Warn().
		Str("channel_id", m.id).
		Str("attempted", attempted).
		Str("state", m.state.String()).
		Msg("Ignoring illegal channel transition")
}

func closeOutput(id string, out audio.Output) {
	if closer, ok := out.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("channel_id", id).
				Msg("Failed to close channel output")
		}
	}
}
