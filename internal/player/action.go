package player

import "time"

// Actions represent intent from the UI, the remote-control surface, or the
// system itself (fade completions, timer ticks). The engine's dispatch loop
// is the only consumer; the reducer is the only place they change state.

// Action is a marker interface for all dispatched commands
type Action interface{}

// User actions. The HTTP surface and any remote-control input may only
// dispatch these three plus VariantSelected; there is no privileged path.

// TappedPlayPause toggles global playback
type TappedPlayPause struct{}

// VolumeChanged sets one channel's volume
type VolumeChanged struct {
	ChannelID string
	Volume    float64
}

// VariantSelected switches one channel to another source variant
type VariantSelected struct {
	ChannelID string
	VariantID string
}

// TimerSelected selects a sleep timer mode; 0 seconds turns the timer off
type TimerSelected struct {
	Seconds int
}

// ReloadRequested re-runs the catalog load, the only way out of a global
// error phase
type ReloadRequested struct{}

// System actions, dispatched by the effect executor and the timer service.

// LoadRequested starts the initial catalog load
type LoadRequested struct{}

// CatalogLoaded reports a finished catalog load with the seeded channels
// and the persisted timer mode
type CatalogLoaded struct {
	Channels     []ChannelState
	TimerSeconds int
}

// CatalogLoadFailed reports a fatal catalog load failure
type CatalogLoadFailed struct {
	Reason string
}

// FadeInStarted reports that the play fan-out began ramping channels up
type FadeInStarted struct {
	Duration time.Duration
}

// FadeOutStarted reports that the pause fan-out began ramping channels down
type FadeOutStarted struct {
	Duration time.Duration
}

// FadeInCompleted reports that every fanned-out fade-in finished
type FadeInCompleted struct{}

// FadeOutCompleted reports that every fanned-out fade-out finished
type FadeOutCompleted struct{}

// TimerTicked reports one elapsed second of the sleep timer
type TimerTicked struct {
	Remaining int
}

// TimerExpired reports that the sleep timer reached zero
type TimerExpired struct{}

// ChannelFailed reports an isolated per-channel failure; the rest of the
// mix keeps operating
type ChannelFailed struct {
	ChannelID string
	Reason    string
}

// ChannelReloaded reports a successful variant swap on one channel
type ChannelReloaded struct {
	ChannelID string
}
