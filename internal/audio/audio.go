// Package audio plays the greeting and beep clips and records callers.
//
// Two backends implement Device: ALSADevice drives the aplay, arecord and
// amixer tools, PortAudioDevice talks to the sound card through PortAudio and
// encodes WAV files itself.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrStart means playback or recording could not be started.
	ErrStart = errors.New("audio device failed to start")
	// ErrStop means playback or recording did not stop cleanly.
	ErrStop = errors.New("audio device failed to stop")
)

// Device is the audio service the call orchestrator drives.
type Device interface {
	// Play plays the clip at volume (0.0-1.0) after startDelay. It blocks until
	// the clip finishes and reports whether it was stopped early, either by
	// StopPlayback or by ctx being done. Cancellation during the delay counts
	// as an interruption.
	Play(ctx context.Context, clip string, volume float64, startDelay time.Duration) (interrupted bool, err error)

	// StopPlayback stops any playback in progress and waits for it to end.
	// It is safe to call when nothing is playing.
	StopPlayback() error

	// StartRecording begins recording to path and returns once the recorder
	// is running. The recording ends on StopRecording or when the configured
	// limit is reached.
	StartRecording(path string) error

	// StopRecording finalizes and closes the current recording, if any.
	StopRecording() error

	// Close stops everything and releases the device.
	Close() error
}

// Commands names the ALSA command line tools
type Commands struct {
	Aplay   string
	Arecord string
	Amixer  string
}

// Config holds audio configuration
type Config struct {
	// HWMapping is the ALSA device, e.g. "plughw:1,0". PortAudio matches it
	// against device names.
	HWMapping      string
	Format         string
	FileType       string
	SampleRate     int
	Channels       int
	MixerControl   string
	RecordingLimit time.Duration
	Commands       Commands
	// StopTimeout bounds how long a stop waits before killing the recorder.
	StopTimeout time.Duration
	// StartupGrace is how long a freshly started recorder must stay alive
	// before StartRecording reports success.
	StartupGrace time.Duration
}

// DefaultConfig returns the default audio configuration
func DefaultConfig() Config {
	return Config{
		HWMapping:      "default",
		Format:         "cd",
		FileType:       "wav",
		SampleRate:     44100,
		Channels:       2,
		RecordingLimit: 5 * time.Minute,
		Commands: Commands{
			Aplay:   "aplay",
			Arecord: "arecord",
			Amixer:  "amixer",
		},
		StopTimeout:  1200 * time.Millisecond,
		StartupGrace: 250 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.HWMapping == "" {
		c.HWMapping = def.HWMapping
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.FileType == "" {
		c.FileType = def.FileType
	}
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.Channels <= 0 {
		c.Channels = def.Channels
	}
	if c.Commands.Aplay == "" {
		c.Commands.Aplay = def.Commands.Aplay
	}
	if c.Commands.Arecord == "" {
		c.Commands.Arecord = def.Commands.Arecord
	}
	if c.Commands.Amixer == "" {
		c.Commands.Amixer = def.Commands.Amixer
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = def.StopTimeout
	}
	if c.StartupGrace <= 0 {
		c.StartupGrace = def.StartupGrace
	}
	return c
}

// waitDelay waits for d and reports whether it fully elapsed before ctx was done.
func waitDelay(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// ensureWritable creates the parent directory of path and checks that path
// can be opened for writing. The probe file is left in place for the recorder.
func ensureWritable(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("recording path is not writable: %w", err)
	}
	return f.Close()
}
