package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hajimehoshi/go-mp3"
	"github.com/hajimehoshi/oto/v2"

	"github.com/rusel95/whitenoise/internal/logger"
)

const bytesPerSample = 2 // oto.FormatSignedInt16LE

// Device wraps a shared oto audio context. One Device serves every Output
// in the process; oto only allows a single context.
type Device struct {
	ctx        *oto.Context
	ready      chan struct{}
	sampleRate int
}

// NewDevice opens the system audio device.
func NewDevice(sampleRate, channelCount int) (*Device, error) {
	ctx, ready, err := oto.NewContext(sampleRate, channelCount, bytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	return &Device{ctx: ctx, ready: ready, sampleRate: sampleRate}, nil
}

// NewOutput creates a looping Output for the given MP3 file.
// The stream is decoded lazily; the file stays open for the Output's lifetime.
func (d *Device) NewOutput(path string) (Output, error) {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if dec.SampleRate() != d.sampleRate {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is %d Hz, device is %d Hz",
			ErrSampleRateMismatch, filepath.Base(path), dec.SampleRate(), d.sampleRate)
	}

	<-d.ready

	loop := &loopReader{src: dec}
	out := &otoOutput{
		path:   path,
		file:   f,
		loop:   loop,
		player: d.ctx.NewPlayer(loop),
		volume: 1.0,
	}
	out.player.SetVolume(0)
	return out, nil
}

// loopReader replays its source forever by rewinding on EOF,
// which is what makes every channel a seamless loop.
type loopReader struct {
	mu  sync.Mutex
	src io.ReadSeeker
}

func (l *loopReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, err := l.src.Read(p)
	if err == io.EOF {
		if _, serr := l.src.Seek(0, io.SeekStart); serr != nil {
			return n, serr
		}
		if n == 0 {
			n, err = l.src.Read(p)
			return n, err
		}
		return n, nil
	}
	return n, err
}

func (l *loopReader) rewind() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.src.Seek(0, io.SeekStart)
	return err
}

// otoOutput adapts an oto player to the Output interface.
type otoOutput struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	loop   *loopReader
	player oto.Player
	volume float64
	closed bool
}

func (o *otoOutput) SetVolume(volume float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.volume = clamp(volume)
	o.player.SetVolume(o.volume)
}

func (o *otoOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

func (o *otoOutput) Play() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.player.IsPlaying() {
		return
	}
	o.player.Play()
}

func (o *otoOutput) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.player.Pause()
}

func (o *otoOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.player.Pause()
	// Drop any buffered samples, then rewind so the next Play starts clean.
	o.player.Reset()
	if err := o.loop.rewind(); err != nil {
		logger.Log.Warn().
			Err(err).
			Str("path", o.path).
			Msg("Failed to rewind sound stream")
	}
}

func (o *otoOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	return o.player.IsPlaying()
}

// Close releases the player and the underlying file.
func (o *otoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrOutputClosed
	}
	o.closed = true
	if err := o.player.Close(); err != nil {
		_ = o.file.Close()
		return err
	}
	return o.file.Close()
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
