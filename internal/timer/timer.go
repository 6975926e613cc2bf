// Package timer implements the sleep timer countdown service.
//
// The countdown is an integer second counter decremented by a 1 Hz ticker
// rather than a wall-clock subtraction, so a pause followed by a resume
// reproduces the exact remaining value that existed at the moment of the
// pause. The service knows nothing about audio; it only reports ticks and
// a single expiry through its callbacks.
package timer

import (
	"sync"
	"time"

	"github.com/rusel95/whitenoise/internal/logger"
)

// SleepTimer counts down from a starting number of seconds to zero,
// ticking once per second.
//
// Cancellation is cooperative: Pause/Stop invalidate the current tick loop
// immediately without blocking on it. A superseded loop discards any tick
// already in flight and exits on its own.
type SleepTimer struct {
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	total     int
	running   bool
	stopChan  chan struct{}
}

// New creates a sleep timer. onTick is invoked after every elapsed second
// with the remaining count (including the final tick at 0); onExpire is
// invoked exactly once when the countdown reaches zero. Either callback
// may be nil.
func New(onTick func(remaining int), onExpire func()) *SleepTimer {
	return &SleepTimer{onTick: onTick, onExpire: onExpire}
}

// Start begins a countdown from seconds. Any countdown already running is
// cancelled first; durations never blend.
func (t *SleepTimer) Start(seconds int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.remaining = seconds
	t.total = seconds
	if seconds > 0 {
		t.stopChan = make(chan struct{})
		t.running = true
		go t.run(t.stopChan)
	}

	logger.Log.Debug().
		Int("seconds", seconds).
		Msg("Sleep timer started")
}

// Pause freezes the countdown, keeping the remaining value. Pausing an
// inactive timer is a no-op.
func (t *SleepTimer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.haltLocked()

	logger.Log.Debug().
		Int("remaining", t.remaining).
		Msg("Sleep timer paused")
}

// Resume continues a paused countdown from its frozen remaining value.
// Resuming a running or expired timer is a no-op.
func (t *SleepTimer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running || t.remaining <= 0 {
		return
	}
	t.stopChan = make(chan struct{})
	t.running = true
	go t.run(t.stopChan)

	logger.Log.Debug().
		Int("remaining", t.remaining).
		Msg("Sleep timer resumed")
}

// Stop cancels the countdown and zeroes all state.
func (t *SleepTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.haltLocked()
	t.remaining = 0
	t.total = 0
}

// Remaining returns the seconds left on the countdown.
func (t *SleepTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Total returns the seconds the current countdown was started with.
func (t *SleepTimer) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// IsRunning reports whether the countdown is actively ticking.
func (t *SleepTimer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// haltLocked invalidates the current tick loop. Caller must hold t.mu.
func (t *SleepTimer) haltLocked() {
	if t.stopChan != nil {
		close(t.stopChan)
		t.stopChan = nil
	}
	t.running = false
}

// run is the tick loop. stop identifies this loop; once a newer loop (or a
// halt) replaces t.stopChan, every tick from this loop is discarded.
func (t *SleepTimer) run(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining, expired, ok := t.tick(stop)
			if !ok {
				return
			}
			if t.onTick != nil {
				t.onTick(remaining)
			}
			if expired {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}

// tick advances the countdown by one second. ok is false when this loop
// has been superseded and the tick must be discarded.
func (t *SleepTimer) tick(stop chan struct{}) (remaining int, expired, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running || t.stopChan != stop {
		return 0, false, false
	}

	t.remaining--
	if t.remaining <= 0 {
		t.remaining = 0
		t.running = false
		t.stopChan = nil
		return 0, true, true
	}
	return t.remaining, false, true
}
