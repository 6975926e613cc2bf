package player

import "time"

// Snapshot is the read-only projection handed to presentation consumers
// after every dispatch. It carries no internal events, only display state.
type Snapshot struct {
	Phase          string            `json:"phase"`
	CanAcceptInput bool              `json:"can_accept_input"`
	IsPlaying      bool              `json:"is_playing"`
	Loading        bool              `json:"loading"`
	FadeProgress   float64           `json:"fade_progress"`
	Timer          TimerSnapshot     `json:"timer"`
	Channels       []ChannelSnapshot `json:"channels"`
	Error          string            `json:"error,omitempty"`
}

// TimerSnapshot is the presentation view of the sleep timer.
type TimerSnapshot struct {
	ModeSeconds int    `json:"mode_seconds"`
	Remaining   int    `json:"remaining_seconds"`
	Active      bool   `json:"active"`
	Display     string `json:"display"`
}

// ChannelSnapshot is the presentation view of one channel.
type ChannelSnapshot struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Icon       string   `json:"icon,omitempty"`
	Volume     float64  `json:"volume"`
	VariantID  string   `json:"variant_id"`
	VariantIDs []string `json:"variant_ids"`
	Active     bool     `json:"active"`
	Error      string   `json:"error,omitempty"`
}

// Snapshot projects the aggregate state for presentation. now is used to
// derive the fade progress of a transition in flight.
func (s State) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Phase:          s.Phase.String(),
		CanAcceptInput: s.Phase.CanAcceptInput(),
		IsPlaying:      s.Phase.IsPlaying(),
		Loading:        s.Loading,
		FadeProgress:   s.fadeProgress(now),
		Error:          s.LastError,
		Timer: TimerSnapshot{
			ModeSeconds: s.Timer.ModeSeconds,
			Remaining:   s.Timer.Remaining,
			Active:      s.Timer.Active,
			Display:     FormatTimerDisplay(s.Timer.Remaining),
		},
		Channels: make([]ChannelSnapshot, 0, len(s.Channels)),
	}

	for _, c := range s.Channels {
		ids := make([]string, len(c.VariantIDs))
		copy(ids, c.VariantIDs)
		snap.Channels = append(snap.Channels, ChannelSnapshot{
			ID:         c.ID,
			Name:       c.Name,
			Icon:       c.Icon,
			Volume:     c.Volume,
			VariantID:  c.VariantID,
			VariantIDs: ids,
			Active:     c.IsActive(),
			Error:      c.FailReason,
		})
	}

	return snap
}

// fadeProgress reports how far the current fade has advanced, 0..1.
func (s State) fadeProgress(now time.Time) float64 {
	if s.FadeDuration <= 0 {
		return 0
	}
	if s.Phase != PhaseFadingIn && s.Phase != PhaseFadingOut {
		return 0
	}
	p := float64(now.Sub(s.FadeStarted)) / float64(s.FadeDuration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
