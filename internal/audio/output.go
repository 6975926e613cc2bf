// Package audio provides the playback output abstraction and its
// oto-backed implementation.
//
// An Output is one independently controllable looping sound stream. The
// rest of the system only ever touches the Output interface below; all
// device and codec details stay inside this package.
package audio

import "errors"

// Common errors
var (
	ErrOutputClosed       = errors.New("audio output is closed")
	ErrUnsupportedSource  = errors.New("unsupported audio source")
	ErrSampleRateMismatch = errors.New("source sample rate does not match device")
)

// Output is the narrow control surface of a single looping sound stream.
type Output interface {
	// SetVolume sets the playback volume, clamped to [0, 1].
	SetVolume(volume float64)
	// Volume returns the current playback volume.
	Volume() float64
	// Play starts or resumes playback.
	Play()
	// Pause halts playback, keeping the stream position.
	Pause()
	// Stop halts playback and rewinds the stream to its start.
	Stop()
	// IsPlaying reports whether the stream is currently audible.
	IsPlaying() bool
}
