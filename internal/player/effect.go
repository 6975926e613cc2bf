package player

import "time"

// Effects are the I/O-performing side of a reduction. The reducer emits
// them as data; the executor performs them and reports back by dispatching
// follow-up actions.

// Effect is a marker interface for all side effects
type Effect interface{}

// ChannelFade pairs a channel id with its target volume for a play fan-out.
type ChannelFade struct {
	ChannelID string
	Volume    float64
}

// PlayChannels fades the given channels in concurrently. When every fade
// has completed (or been cancelled by a newer operation), the executor
// dispatches FadeInCompleted, unless a newer global operation superseded
// this one.
type PlayChannels struct {
	Channels []ChannelFade
	Duration time.Duration
}

// PauseChannels fades the given channels out concurrently, halting each
// output as its fade completes, then dispatches FadeOutCompleted.
type PauseChannels struct {
	ChannelIDs []string
	Duration   time.Duration
}

// PlaySingle fades one channel in without touching the global phase
// (volume toggled 0 -> positive while the mix is audible).
type PlaySingle struct {
	Channel  ChannelFade
	Duration time.Duration
}

// PauseSingle fades one channel out without touching the global phase
// (volume toggled positive -> 0 while the mix is audible).
type PauseSingle struct {
	ChannelID string
	Duration  time.Duration
}

// AdjustVolume sets one audible channel's volume immediately, no fade.
type AdjustVolume struct {
	ChannelID string
	Volume    float64
}

// StopAllChannels cancels all in-flight fades and halts every output
// synchronously. Used at shutdown.
type StopAllChannels struct{}

// StartTimer starts (or restarts) the sleep timer countdown.
type StartTimer struct {
	Seconds int
}

// PauseTimer freezes the countdown, keeping the remaining value.
type PauseTimer struct{}

// StopTimer cancels the countdown and zeroes it.
type StopTimer struct{}

// LoadCatalog loads the sound library, builds the channel machines and
// seeds them from persisted prefs, then dispatches CatalogLoaded or
// CatalogLoadFailed.
type LoadCatalog struct{}

// SwapVariant rebuilds one channel's output from another source variant.
// When Resume is set the channel fades back in at Volume afterwards.
type SwapVariant struct {
	ChannelID string
	VariantID string
	Resume    bool
	Volume    float64
	Duration  time.Duration
}

// PersistPref saves one channel's volume and variant, fire-and-forget.
type PersistPref struct {
	ChannelID string
	Volume    float64
	VariantID string
}

// PersistTimerMode saves the last selected timer mode, fire-and-forget.
type PersistTimerMode struct {
	Seconds int
}
