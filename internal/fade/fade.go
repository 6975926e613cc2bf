// Package fade implements a cancellable, time-stepped linear volume ramp.
//
// A Fader drives at most one ramp at a time against a single audio output.
// Starting a new ramp implicitly cancels the previous one; every ramp
// completes exactly once, either by reaching its target or by being
// cancelled. On cancellation the output is left at whatever volume the
// ramp had reached.
package fade

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rusel95/whitenoise/internal/audio"
)

// ErrCancelled is returned by FadeTo when the ramp was cancelled before
// reaching its target.
var ErrCancelled = errors.New("fade cancelled")

// DefaultStepRate is the number of volume steps per second.
const DefaultStepRate = 50

// Fader runs volume ramps against audio outputs, one at a time.
type Fader struct {
	stepRate int

	mu      sync.Mutex
	current *ramp
}

type ramp struct {
	cancel context.CancelFunc
}

// NewFader creates a Fader stepping stepRate times per second.
// Values below 1 fall back to DefaultStepRate.
func NewFader(stepRate int) *Fader {
	if stepRate < 1 {
		stepRate = DefaultStepRate
	}
	return &Fader{stepRate: stepRate}
}

// FadeTo ramps out's volume linearly from its current value to target over
// duration. It blocks until the ramp completes and returns nil, or until it
// is cancelled and returns ErrCancelled. A zero or negative duration jumps
// straight to the target.
//
// Calling FadeTo while a previous ramp is still running cancels that ramp
// first; the two never overlap.
func (f *Fader) FadeTo(ctx context.Context, out audio.Output, target float64, duration time.Duration) error {
	target = clamp(target)

	rctx, r := f.begin(ctx)
	defer f.end(r)

	if duration <= 0 {
		out.SetVolume(target)
		return nil
	}

	steps := int(duration.Seconds() * float64(f.stepRate))
	if steps < 1 {
		steps = 1
	}

	start := out.Volume()
	delta := (target - start) / float64(steps)

	ticker := time.NewTicker(duration / time.Duration(steps))
	defer ticker.Stop()

	for i := 1; i <= steps; i++ {
		select {
		case <-rctx.Done():
			return ErrCancelled
		case <-ticker.C:
			if i == steps {
				out.SetVolume(target)
			} else {
				out.SetVolume(clamp(start + delta*float64(i)))
			}
		}
	}

	return nil
}

// Cancel aborts the in-flight ramp, if any. It is idempotent and safe to
// call before a ramp starts, mid-ramp, or after completion.
func (f *Fader) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.cancel()
	}
}

// begin cancels any running ramp and registers a new one.
func (f *Fader) begin(ctx context.Context) (context.Context, *ramp) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil {
		f.current.cancel()
	}

	rctx, cancel := context.WithCancel(ctx)
	r := &ramp{cancel: cancel}
	f.current = r
	return rctx, r
}

// end releases the ramp's cancel func, unless a newer ramp already took over.
func (f *Fader) end(r *ramp) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.cancel()
	if f.current == r {
		f.current = nil
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
