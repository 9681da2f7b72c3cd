package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ALSADevice implements Device with the aplay and arecord command line tools.
type ALSADevice struct {
	config Config
	mixer  *Mixer

	mu        sync.Mutex
	playback  *process
	recording *process
}

// NewALSADevice creates an ALSA backed device
func NewALSADevice(config Config) *ALSADevice {
	config = config.withDefaults()
	return &ALSADevice{
		config: config,
		mixer:  NewMixer(config.Commands.Amixer, config.MixerControl, config.HWMapping),
	}
}

// Play plays clip with aplay
func (d *ALSADevice) Play(ctx context.Context, clip string, volume float64, startDelay time.Duration) (bool, error) {
	if !waitDelay(ctx, startDelay) {
		return true, nil
	}
	if err := d.mixer.SetVolume(ctx, volume); err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		return false, fmt.Errorf("%w: %w", ErrStart, err)
	}

	d.mu.Lock()
	if ctx.Err() != nil {
		d.mu.Unlock()
		return true, nil
	}
	if d.playback != nil {
		d.mu.Unlock()
		return false, fmt.Errorf("%w: playback already in progress", ErrStart)
	}
	p, err := startProcess(d.config.Commands.Aplay, d.config.StopTimeout, d.playbackArgs(clip)...)
	if err != nil {
		d.mu.Unlock()
		return false, fmt.Errorf("%w: failed to start aplay: %w", ErrStart, err)
	}
	d.playback = p
	d.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		_ = p.stop(d.config.StopTimeout)
	}
	<-p.done

	d.mu.Lock()
	if d.playback == p {
		d.playback = nil
	}
	d.mu.Unlock()

	if p.wasStopped() {
		return true, nil
	}
	if err := p.exitErr(); err != nil {
		return false, fmt.Errorf("%w: aplay %s: %w: %s", ErrStart, clip, err, p.stderrText())
	}
	return false, nil
}

// StopPlayback stops aplay if it is running
func (d *ALSADevice) StopPlayback() error {
	d.mu.Lock()
	p := d.playback
	d.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.stop(d.config.StopTimeout)
}

// StartRecording starts arecord writing to path. The recorder holds the
// recording slot while it proves it is running, but the device lock is not
// held during that wait so playback can start alongside.
func (d *ALSADevice) StartRecording(path string) error {
	d.mu.Lock()
	if d.recording != nil {
		if !d.recording.exited() {
			d.mu.Unlock()
			return fmt.Errorf("%w: recording already in progress", ErrStart)
		}
		// The previous recording reached its limit on its own.
		d.recording = nil
	}

	if err := ensureWritable(path); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	p, err := startProcess(d.config.Commands.Arecord, d.config.StopTimeout, d.recordingArgs(path)...)
	if err != nil {
		d.mu.Unlock()
		_ = os.Remove(path)
		return fmt.Errorf("%w: failed to start arecord: %w", ErrStart, err)
	}
	d.recording = p
	d.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(d.config.StartupGrace):
		return nil
	}

	d.mu.Lock()
	if d.recording == p {
		d.recording = nil
	}
	d.mu.Unlock()

	// Stopped by StopRecording while starting up
	if p.wasStopped() {
		return nil
	}

	// arecord rewrites the probe file only once it is running.
	if info, statErr := os.Stat(path); statErr == nil && info.Size() == 0 {
		_ = os.Remove(path)
	}
	if err := p.exitErr(); err != nil {
		return fmt.Errorf("%w: arecord exited before recording started: %w: %s", ErrStart, err, p.stderrText())
	}
	return fmt.Errorf("%w: arecord exited before recording started", ErrStart)
}

// StopRecording interrupts arecord so it finalizes the file header
func (d *ALSADevice) StopRecording() error {
	d.mu.Lock()
	p := d.recording
	d.recording = nil
	d.mu.Unlock()

	if p == nil {
		return nil
	}
	if err := p.stop(d.config.StopTimeout); err != nil {
		return err
	}
	if err := normalizeStopErr(p.exitErr()); err != nil {
		return fmt.Errorf("%w: arecord: %w: %s", ErrStop, err, p.stderrText())
	}
	return nil
}

// Close stops playback and recording
func (d *ALSADevice) Close() error {
	return errors.Join(d.StopPlayback(), d.StopRecording())
}

func (d *ALSADevice) playbackArgs(clip string) []string {
	return []string{"-q", "-D", d.config.HWMapping, clip}
}

func (d *ALSADevice) recordingArgs(path string) []string {
	args := []string{
		"-q",
		"-D", d.config.HWMapping,
		"-f", d.config.Format,
		"-t", d.config.FileType,
		"-r", strconv.Itoa(d.config.SampleRate),
		"-c", strconv.Itoa(d.config.Channels),
	}
	if secs := int(d.config.RecordingLimit / time.Second); secs > 0 {
		args = append(args, "-d", strconv.Itoa(secs))
	}
	return append(args, path)
}

// process is a running ALSA tool
type process struct {
	name    string
	cmd     *exec.Cmd
	stderr  *bytes.Buffer
	done    chan struct{}
	waitErr error

	stopOnce sync.Once
	stopErr  error
	stopped  atomic.Bool
}

// startProcess runs name. waitDelay bounds how long Wait keeps reading
// stderr after the process itself has exited.
func startProcess(name string, waitDelay time.Duration, args ...string) (*process, error) {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		name:   name,
		cmd:    cmd,
		stderr: &stderr,
		done:   make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// stop sends SIGINT, which lets aplay and arecord close their files, and
// kills the process if it is still running after timeout.
func (p *process) stop(timeout time.Duration) error {
	p.stopOnce.Do(func() {
		if p.exited() {
			return
		}
		p.stopped.Store(true)

		if err := p.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
			_ = p.cmd.Process.Kill()
		}

		select {
		case <-p.done:
		case <-time.After(timeout):
			_ = p.cmd.Process.Kill()
			<-p.done
			p.stopErr = fmt.Errorf("%w: %s did not exit within %v and was killed", ErrStop, p.name, timeout)
		}
	})
	<-p.done
	return p.stopErr
}

func (p *process) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// exitErr returns the exit error, ignoring output pipes left open by
// children of the tool.
func (p *process) exitErr() error {
	if errors.Is(p.waitErr, exec.ErrWaitDelay) {
		return nil
	}
	return p.waitErr
}

func (p *process) wasStopped() bool {
	return p.stopped.Load()
}

// stderrText must only be called once the process has exited.
func (p *process) stderrText() string {
	return string(bytes.TrimSpace(p.stderr.Bytes()))
}

// normalizeStopErr drops the exit status caused by our own interrupt.
func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}
