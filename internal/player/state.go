package player

import (
	"fmt"
	"time"
)

// ChannelState is the orchestrator's view of one sound channel. It is owned
// by the aggregate State and mutated only through dispatched actions.
type ChannelState struct {
	ID         string
	Name       string
	Icon       string
	Volume     float64
	VariantID  string
	VariantIDs []string
	Failed     bool
	FailReason string
}

// IsActive reports whether the channel takes part in playback.
func (c ChannelState) IsActive() bool {
	return c.Volume > 0 && !c.Failed
}

// TimerState is the orchestrator's view of the sleep timer.
type TimerState struct {
	// ModeSeconds is the selected countdown length; 0 means off.
	ModeSeconds int
	// Remaining is the seconds left; frozen while the timer is paused.
	Remaining int
	// Active reports whether the countdown is ticking.
	Active bool
	// StartedAt is the instant the current countdown began, zero when off.
	StartedAt time.Time
	// PausedAt is the instant the countdown was frozen, zero while ticking.
	PausedAt time.Time
	// PausedFor accumulates time spent paused since StartedAt.
	PausedFor time.Duration
}

// Off reports whether no timer mode is selected.
func (t TimerState) Off() bool {
	return t.ModeSeconds == 0
}

// State is the single global aggregate. Every reduction produces a complete
// next snapshot; it is never partially copied.
type State struct {
	Phase        Phase
	Channels     []ChannelState
	Timer        TimerState
	Loading      bool
	LastError    string
	FadeStarted  time.Time
	FadeDuration time.Duration
}

// NewState returns the startup state: idle, no channels, no timer.
func NewState() State {
	return State{Phase: PhaseIdle}
}

// channelIndex returns the index of the channel with the given id, or -1.
func (s State) channelIndex(id string) int {
	for i := range s.Channels {
		if s.Channels[i].ID == id {
			return i
		}
	}
	return -1
}

// activeChannelIDs returns the ids of all channels taking part in playback.
func (s State) activeChannelIDs() []string {
	ids := make([]string, 0, len(s.Channels))
	for _, c := range s.Channels {
		if c.IsActive() {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// activeChannelFades returns id/volume pairs for every active channel,
// the payload a play fan-out needs.
func (s State) activeChannelFades() []ChannelFade {
	fades := make([]ChannelFade, 0, len(s.Channels))
	for _, c := range s.Channels {
		if c.IsActive() {
			fades = append(fades, ChannelFade{ChannelID: c.ID, Volume: c.Volume})
		}
	}
	return fades
}

// cloneChannels copies the channel slice so a reduction never aliases the
// previous snapshot.
func (s State) cloneChannels() []ChannelState {
	out := make([]ChannelState, len(s.Channels))
	copy(out, s.Channels)
	for i := range out {
		ids := make([]string, len(out[i].VariantIDs))
		copy(ids, out[i].VariantIDs)
		out[i].VariantIDs = ids
	}
	return out
}

// FormatTimerDisplay renders remaining seconds as "MM:SS" or "H:MM:SS".
func FormatTimerDisplay(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
