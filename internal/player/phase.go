package player

// Phase represents the single global playback/transition status.
// Exactly one value holds at a time.
type Phase int

const (
	// PhaseIdle is the startup state before anything has played
	PhaseIdle Phase = iota
	// PhasePreparingToPlay means a play request was accepted but fades have not started
	PhasePreparingToPlay
	// PhaseFadingIn means channels are ramping up
	PhaseFadingIn
	// PhasePlaying means the mix is fully audible
	PhasePlaying
	// PhasePreparingToPause means a pause request was accepted but fades have not started
	PhasePreparingToPause
	// PhaseFadingOut means channels are ramping down
	PhaseFadingOut
	// PhasePaused means the mix is halted with positions kept
	PhasePaused
	// PhaseError means the catalog load failed; recoverable via reload
	PhaseError
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparingToPlay:
		return "preparing_to_play"
	case PhaseFadingIn:
		return "fading_in"
	case PhasePlaying:
		return "playing"
	case PhasePreparingToPause:
		return "preparing_to_pause"
	case PhaseFadingOut:
		return "fading_out"
	case PhasePaused:
		return "paused"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTransitioning reports whether the phase is a non-terminal transition
// state. Note that only the preparing windows reject input; see
// CanAcceptInput for the fade reversal policy.
func (p Phase) IsTransitioning() bool {
	switch p {
	case PhasePreparingToPlay, PhaseFadingIn, PhasePreparingToPause, PhaseFadingOut:
		return true
	default:
		return false
	}
}

// CanAcceptInput reports whether user play/pause input is currently
// accepted. The preparing windows reject input outright; the fading phases
// accept it so a tap mid-fade reverses the fade instead of stacking a
// second transition on top of it.
func (p Phase) CanAcceptInput() bool {
	return p != PhasePreparingToPlay && p != PhasePreparingToPause
}

// IsPlaying reports whether the phase implies audibility: a channel is only
// audible when IsPlaying and its own volume is positive.
func (p Phase) IsPlaying() bool {
	return p == PhasePlaying || p == PhaseFadingIn
}
