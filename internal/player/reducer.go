package player

import (
	"time"

	"github.com/rusel95/whitenoise/internal/config"
)

// Reducer is the pure transition function (state, action) -> (state,
// effects). It performs no I/O and reads no clocks; the dispatch loop
// stamps each action with the current time before reduction.
type Reducer struct {
	fades config.FadeConfig
}

// NewReducer creates a reducer with the given fade tuning.
func NewReducer(fades config.FadeConfig) *Reducer {
	return &Reducer{fades: fades}
}

// Reduce computes the next complete state snapshot and the side effects the
// action demands.
func (r *Reducer) Reduce(s State, a Action, now time.Time) (State, []Effect) {
	switch act := a.(type) {
	case TappedPlayPause:
		return r.reduceTapped(s)
	case VolumeChanged:
		return r.reduceVolume(s, act)
	case VariantSelected:
		return r.reduceVariant(s, act)
	case TimerSelected:
		return r.reduceTimerSelected(s, act, now)
	case LoadRequested, ReloadRequested:
		return r.reduceLoadRequested(s)
	case CatalogLoaded:
		return r.reduceCatalogLoaded(s, act)
	case CatalogLoadFailed:
		s.Loading = false
		s.Phase = PhaseError
		s.LastError = act.Reason
		return s, nil
	case FadeInStarted:
		if s.Phase == PhasePreparingToPlay {
			s.Phase = PhaseFadingIn
			s.FadeStarted = now
			s.FadeDuration = act.Duration
		}
		return s, nil
	case FadeOutStarted:
		if s.Phase == PhasePreparingToPause {
			s.Phase = PhaseFadingOut
			s.FadeStarted = now
			s.FadeDuration = act.Duration
		}
		return s, nil
	case FadeInCompleted:
		return r.reduceFadeInCompleted(s, now)
	case FadeOutCompleted:
		return r.reduceFadeOutCompleted(s, now)
	case TimerTicked:
		if s.Timer.Active {
			s.Timer.Remaining = act.Remaining
		}
		return s, nil
	case TimerExpired:
		return r.reduceTimerExpired(s)
	case ChannelFailed:
		if i := s.channelIndex(act.ChannelID); i >= 0 {
			s.Channels = s.cloneChannels()
			s.Channels[i].Failed = true
			s.Channels[i].FailReason = act.Reason
		}
		return s, nil
	case ChannelReloaded:
		if i := s.channelIndex(act.ChannelID); i >= 0 {
			s.Channels = s.cloneChannels()
			s.Channels[i].Failed = false
			s.Channels[i].FailReason = ""
		}
		return s, nil
	default:
		return s, nil
	}
}

// reduceTapped handles the global play/pause toggle, including reversing a
// fade that is still in flight.
func (r *Reducer) reduceTapped(s State) (State, []Effect) {
	// While a catalog load is in flight the channel list is empty or about
	// to be replaced; a fan-out over it would settle a phase no machine
	// ever entered.
	if s.Loading || !s.Phase.CanAcceptInput() {
		return s, nil
	}

	switch s.Phase {
	case PhaseIdle, PhasePaused:
		s.Phase = PhasePreparingToPlay
		return s, []Effect{PlayChannels{Channels: s.activeChannelFades(), Duration: r.fades.In}}
	case PhasePlaying:
		s.Phase = PhasePreparingToPause
		return s, []Effect{PauseChannels{ChannelIDs: s.activeChannelIDs(), Duration: r.fades.Out}}
	case PhaseFadingIn:
		// Cancel-and-reverse with a shorter ramp.
		s.Phase = PhasePreparingToPause
		return s, []Effect{PauseChannels{ChannelIDs: s.activeChannelIDs(), Duration: r.fades.Reversal}}
	case PhaseFadingOut:
		s.Phase = PhasePreparingToPlay
		return s, []Effect{PlayChannels{Channels: s.activeChannelFades(), Duration: r.fades.Reversal}}
	default:
		// PhaseError: recoverable only via reload.
		return s, nil
	}
}

// reduceVolume stores the new volume and, only while the phase implies
// audibility, fades that one channel in or out across the zero boundary.
//
// A volume toggled 0 -> positive during a global fade-out does NOT join the
// outgoing fade; the stored volume simply takes effect on the next play.
func (r *Reducer) reduceVolume(s State, act VolumeChanged) (State, []Effect) {
	i := s.channelIndex(act.ChannelID)
	if i < 0 {
		return s, nil
	}

	volume := clampVolume(act.Volume)
	s.Channels = s.cloneChannels()
	ch := &s.Channels[i]
	old := ch.Volume
	ch.Volume = volume

	effects := []Effect{PersistPref{ChannelID: ch.ID, Volume: volume, VariantID: ch.VariantID}}

	if !s.Phase.IsPlaying() || ch.Failed {
		return s, effects
	}

	switch {
	case old == 0 && volume > 0:
		effects = append(effects, PlaySingle{
			Channel:  ChannelFade{ChannelID: ch.ID, Volume: volume},
			Duration: r.fades.In,
		})
	case old > 0 && volume == 0:
		effects = append(effects, PauseSingle{ChannelID: ch.ID, Duration: r.fades.Out})
	case old > 0 && volume > 0:
		effects = append(effects, AdjustVolume{ChannelID: ch.ID, Volume: volume})
	}

	return s, effects
}

// reduceVariant switches a channel's source variant and schedules the swap.
func (r *Reducer) reduceVariant(s State, act VariantSelected) (State, []Effect) {
	i := s.channelIndex(act.ChannelID)
	if i < 0 {
		return s, nil
	}

	s.Channels = s.cloneChannels()
	ch := &s.Channels[i]

	if !hasString(ch.VariantIDs, act.VariantID) || ch.VariantID == act.VariantID {
		return s, nil
	}

	resume := s.Phase.IsPlaying() && ch.Volume > 0 && !ch.Failed
	ch.VariantID = act.VariantID

	return s, []Effect{
		PersistPref{ChannelID: ch.ID, Volume: ch.Volume, VariantID: ch.VariantID},
		SwapVariant{
			ChannelID: ch.ID,
			VariantID: ch.VariantID,
			Resume:    resume,
			Volume:    ch.Volume,
			Duration:  r.fades.In,
		},
	}
}

// reduceTimerSelected selects a new timer mode. Changing the mode while a
// countdown is active restarts it at the new duration; durations never blend.
func (r *Reducer) reduceTimerSelected(s State, act TimerSelected, now time.Time) (State, []Effect) {
	seconds := act.Seconds
	if seconds < 0 {
		seconds = 0
	}

	effects := []Effect{PersistTimerMode{Seconds: seconds}}

	if seconds == 0 {
		s.Timer = TimerState{}
		return s, append(effects, StopTimer{})
	}

	s.Timer = TimerState{
		ModeSeconds: seconds,
		Remaining:   seconds,
	}
	if s.Phase.IsPlaying() {
		s.Timer.Active = true
		s.Timer.StartedAt = now
		effects = append(effects, StartTimer{Seconds: seconds})
	}
	return s, effects
}

// reduceLoadRequested begins a catalog (re)load. Reloading while the mix is
// audible tears playback down first; the rebuilt machines all start stopped.
func (r *Reducer) reduceLoadRequested(s State) (State, []Effect) {
	if s.Loading {
		return s, nil
	}
	s.Loading = true

	effects := make([]Effect, 0, 3)
	if s.Phase != PhaseIdle && s.Phase != PhaseError {
		s.Phase = PhaseIdle
		s.FadeDuration = 0
		effects = append(effects, StopAllChannels{})
	}
	if s.Timer.Active {
		s.Timer = TimerState{
			ModeSeconds: s.Timer.ModeSeconds,
			Remaining:   s.Timer.ModeSeconds,
		}
		effects = append(effects, StopTimer{})
	}
	return s, append(effects, LoadCatalog{})
}

// reduceCatalogLoaded installs the loaded channels and the restored timer
// mode. A previous global error phase is cleared.
func (r *Reducer) reduceCatalogLoaded(s State, act CatalogLoaded) (State, []Effect) {
	s.Loading = false
	s.LastError = ""
	s.Channels = act.Channels
	if s.Phase == PhaseError {
		s.Phase = PhaseIdle
	}
	if act.TimerSeconds > 0 && s.Timer.Off() {
		s.Timer = TimerState{
			ModeSeconds: act.TimerSeconds,
			Remaining:   act.TimerSeconds,
		}
	}
	return s, nil
}

// reduceFadeInCompleted settles the mix into Playing and starts the sleep
// timer if a mode is selected but not yet counting.
func (r *Reducer) reduceFadeInCompleted(s State, now time.Time) (State, []Effect) {
	if s.Phase != PhaseFadingIn && s.Phase != PhasePreparingToPlay {
		return s, nil
	}
	s.Phase = PhasePlaying
	s.FadeDuration = 0

	if s.Timer.Off() || s.Timer.Active {
		return s, nil
	}

	remaining := s.Timer.Remaining
	if remaining <= 0 {
		remaining = s.Timer.ModeSeconds
	}
	s.Timer.Active = true
	s.Timer.Remaining = remaining
	if s.Timer.StartedAt.IsZero() {
		s.Timer.StartedAt = now
	}
	if !s.Timer.PausedAt.IsZero() {
		s.Timer.PausedFor += now.Sub(s.Timer.PausedAt)
		s.Timer.PausedAt = time.Time{}
	}
	return s, []Effect{StartTimer{Seconds: remaining}}
}

// reduceFadeOutCompleted settles the mix into Paused, freezing the timer.
func (r *Reducer) reduceFadeOutCompleted(s State, now time.Time) (State, []Effect) {
	if s.Phase != PhaseFadingOut && s.Phase != PhasePreparingToPause {
		return s, nil
	}
	s.Phase = PhasePaused
	s.FadeDuration = 0

	if !s.Timer.Active {
		return s, nil
	}
	s.Timer.Active = false
	s.Timer.PausedAt = now
	return s, []Effect{PauseTimer{}}
}

// reduceTimerExpired resets the timer and fades the whole mix out with the
// long, softer expiry ramp. An expiry that raced a manual cancel is stale
// and ignored.
//
// The countdown keeps ticking through a pause fade and its reversal, so
// expiry can land while the phase is still heading toward audibility.
// Every such phase must end up paused; only a mix already on its way out
// (or halted) gets to ignore the expiry.
func (r *Reducer) reduceTimerExpired(s State) (State, []Effect) {
	if !s.Timer.Active {
		return s, nil
	}
	s.Timer = TimerState{}

	switch s.Phase {
	case PhasePlaying, PhaseFadingIn, PhasePreparingToPlay:
		s.Phase = PhasePreparingToPause
		return s, []Effect{PauseChannels{ChannelIDs: s.activeChannelIDs(), Duration: r.fades.TimerExpiry}}
	default:
		return s, nil
	}
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func hasString(list []string, item string) bool {
	for _, s := range list {
		if s == item {
			return true
		}
	}
	return false
}
