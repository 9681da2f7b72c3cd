//go:build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// PortAudioDevice implements Device on PortAudio blocking streams. It only
// plays and records 16-bit WAV files.
type PortAudioDevice struct {
	config Config
	mixer  *Mixer

	mu        sync.Mutex
	playback  *paSession
	recording *paSession
}

// paSession is one playback or recording loop
type paSession struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func newPASession() *paSession {
	return &paSession{stop: make(chan struct{}), done: make(chan struct{})}
}

func (s *paSession) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *paSession) stopRequested() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// NewPortAudioDevice initializes PortAudio
func NewPortAudioDevice(config Config) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	config = config.withDefaults()
	return &PortAudioDevice{
		config: config,
		mixer:  NewMixer(config.Commands.Amixer, config.MixerControl, config.HWMapping),
	}, nil
}

// findDevice returns the first device whose name contains the configured
// mapping, or the default device when the mapping is "default" or unmatched.
func (d *PortAudioDevice) findDevice(input bool) (*portaudio.DeviceInfo, error) {
	if d.config.HWMapping != "default" {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		for _, dev := range devices {
			if !strings.Contains(dev.Name, d.config.HWMapping) {
				continue
			}
			if (input && dev.MaxInputChannels > 0) || (!input && dev.MaxOutputChannels > 0) {
				return dev, nil
			}
		}
	}
	if input {
		return portaudio.DefaultInputDevice()
	}
	return portaudio.DefaultOutputDevice()
}

// Play decodes clip and writes it to the output device
func (d *PortAudioDevice) Play(ctx context.Context, clipPath string, volume float64, startDelay time.Duration) (bool, error) {
	if !waitDelay(ctx, startDelay) {
		return true, nil
	}
	if err := d.mixer.SetVolume(ctx, volume); err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, fmt.Errorf("%w: %w", ErrStart, err)
	}

	// Without a mixer control the volume is applied to the samples.
	gain := volume
	if d.config.MixerControl != "" {
		gain = 1
	}
	c, err := loadClip(clipPath, gain)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStart, err)
	}

	dev, err := d.findDevice(false)
	if err != nil {
		return false, fmt.Errorf("%w: no output device: %w", ErrStart, err)
	}

	out := make([]int16, framesPerBuffer*c.channels)
	params := portaudio.HighLatencyParameters(nil, dev)
	params.Output.Channels = c.channels
	params.SampleRate = float64(c.sampleRate)
	params.FramesPerBuffer = framesPerBuffer

	d.mu.Lock()
	if ctx.Err() != nil {
		d.mu.Unlock()
		return true, nil
	}
	if d.playback != nil {
		d.mu.Unlock()
		return false, fmt.Errorf("%w: playback already in progress", ErrStart)
	}
	stream, err := portaudio.OpenStream(params, out)
	if err != nil {
		d.mu.Unlock()
		return false, fmt.Errorf("%w: failed to open output stream: %w", ErrStart, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		d.mu.Unlock()
		return false, fmt.Errorf("%w: failed to start output stream: %w", ErrStart, err)
	}
	session := newPASession()
	d.playback = session
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.playback == session {
			d.playback = nil
		}
		d.mu.Unlock()
		close(session.done)
	}()

	interrupted := false
	for off := 0; off < len(c.samples); off += len(out) {
		if session.stopRequested() || ctx.Err() != nil {
			interrupted = true
			break
		}
		n := copy(out, c.samples[off:])
		clear(out[n:])
		if err := stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			stream.Abort()
			stream.Close()
			return false, fmt.Errorf("%w: playback write failed: %w", ErrStart, err)
		}
	}

	if interrupted {
		err = stream.Abort()
	} else {
		err = stream.Stop()
	}
	if closeErr := stream.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		session.err = fmt.Errorf("%w: output stream: %w", ErrStop, err)
	}
	return interrupted, nil
}

// StopPlayback stops the playback loop and waits for the stream to close
func (d *PortAudioDevice) StopPlayback() error {
	d.mu.Lock()
	session := d.playback
	d.mu.Unlock()

	if session == nil {
		return nil
	}
	session.requestStop()
	<-session.done
	return session.err
}

// StartRecording opens the input stream and records into a WAV file at path
func (d *PortAudioDevice) StartRecording(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.recording != nil {
		select {
		case <-d.recording.done:
			d.recording = nil
		default:
			return fmt.Errorf("%w: recording already in progress", ErrStart)
		}
	}

	if err := ensureWritable(path); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	dev, err := d.findDevice(true)
	if err != nil {
		return fmt.Errorf("%w: no input device: %w", ErrStart, err)
	}

	in := make([]int16, framesPerBuffer*d.config.Channels)
	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = d.config.Channels
	params.SampleRate = float64(d.config.SampleRate)
	params.FramesPerBuffer = framesPerBuffer

	stream, err := portaudio.OpenStream(params, in)
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: failed to open input stream: %w", ErrStart, err)
	}

	w, err := newWAVWriter(path, d.config.SampleRate, d.config.Channels)
	if err != nil {
		stream.Close()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		w.Close()
		return fmt.Errorf("%w: failed to start input stream: %w", ErrStart, err)
	}

	session := newPASession()
	d.recording = session
	go d.record(session, stream, in, w)
	return nil
}

// record copies input buffers into the WAV writer until stopped or until the
// recording limit elapses.
func (d *PortAudioDevice) record(session *paSession, stream *portaudio.Stream, in []int16, w *wavWriter) {
	defer close(session.done)

	var limit <-chan time.Time
	if d.config.RecordingLimit > 0 {
		timer := time.NewTimer(d.config.RecordingLimit)
		defer timer.Stop()
		limit = timer.C
	}

	var errs []error
loop:
	for {
		select {
		case <-session.stop:
			break loop
		case <-limit:
			break loop
		default:
		}

		if err := stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			errs = append(errs, fmt.Errorf("input stream read: %w", err))
			break
		}
		if err := w.Write(in); err != nil {
			errs = append(errs, fmt.Errorf("wav write: %w", err))
			break
		}
	}

	errs = append(errs, stream.Stop(), stream.Close(), w.Close())
	if err := errors.Join(errs...); err != nil {
		session.err = fmt.Errorf("%w: %w", ErrStop, err)
	}
}

// StopRecording stops the recording loop and waits for the file to be finalized
func (d *PortAudioDevice) StopRecording() error {
	d.mu.Lock()
	session := d.recording
	d.recording = nil
	d.mu.Unlock()

	if session == nil {
		return nil
	}
	session.requestStop()
	<-session.done
	return session.err
}

// Close stops playback and recording and terminates PortAudio
func (d *PortAudioDevice) Close() error {
	err := errors.Join(d.StopPlayback(), d.StopRecording())
	if termErr := portaudio.Terminate(); termErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to terminate PortAudio: %w", termErr))
	}
	return err
}
