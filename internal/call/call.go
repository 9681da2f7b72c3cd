// Package call turns hook transitions into answering machine calls: greeting,
// beep and a recording that lasts until the handset is put back.
package call

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/audio"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/hook"
)

// State represents the current call state
type State int

const (
	// Idle means the handset is on-hook
	Idle State = iota
	// InCall means a call session is active
	InCall
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case InCall:
		return "InCall"
	default:
		return "Unknown"
	}
}

// Logger is the subset of the application logger used here
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Clip is a sound played during a call
type Clip struct {
	Path       string
	Volume     float64
	StartDelay time.Duration
}

// Config holds configuration for the orchestrator
type Config struct {
	RecordingsDir string
	// Extension of recording files, without the dot
	Extension string
	Greeting  Clip
	Beep      Clip
	// QueueSize bounds the number of pending hook events. Only the order of
	// the newest events matters: off-hook and on-hook are idempotent.
	QueueSize int
}

// Status is a snapshot of the orchestrator state
type Status struct {
	State     State
	SessionID string
	Path      string
	StartedAt time.Time
}

// session is one off-hook to on-hook interval
type session struct {
	id        uuid.UUID
	startedAt time.Time
	path      string
	cancel    context.CancelFunc

	// closed once the greet-then-beep pipeline has returned
	playbackDone chan struct{}
	// closed once the recording start attempt has returned
	recordingDone chan struct{}

	// written before the matching done channel is closed
	interrupted bool
	recording   bool
}

// Orchestrator owns the single call session slot. Hook events are queued by
// Submit and handled one at a time by Run.
type Orchestrator struct {
	config Config
	device audio.Device
	log    Logger
	now    func() time.Time
	events chan hook.Event

	mu      sync.Mutex
	current *session
}

// New creates a new orchestrator
func New(device audio.Device, log Logger, config Config) *Orchestrator {
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	if config.Extension == "" {
		config.Extension = "wav"
	}
	return &Orchestrator{
		config: config,
		device: device,
		log:    log,
		now:    time.Now,
		events: make(chan hook.Event, config.QueueSize),
	}
}

// Submit queues a hook event for Run. It never blocks and is safe to call from
// sensor callbacks. When the queue is full the oldest pending event is dropped
// so the latest handset position always reaches Run; Submit then returns false.
func (o *Orchestrator) Submit(e hook.Event) bool {
	queued := true
	for {
		select {
		case o.events <- e:
			return queued
		default:
		}

		select {
		case dropped := <-o.events:
			queued = false
			o.log.Warn("Event queue full, dropping oldest %s", dropped)
		default:
		}
	}
}

// Run handles queued hook events until ctx is done. An active call is ended
// before Run returns.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case e := <-o.events:
			switch e {
			case hook.OffHook:
				o.HandleOffHook()
			case hook.OnHook:
				o.HandleOnHook()
			default:
				o.log.Warn("Ignoring unknown hook event %d", int(e))
			}

		case <-ctx.Done():
			if status := o.Status(); status.State == InCall {
				o.log.Info("Shutting down, ending call %s recording to %s", status.SessionID, status.Path)
				o.HandleOnHook()
			}
			return
		}
	}
}

// HandleOffHook starts a call unless one is already active. The greeting
// pipeline and the recording run in the background.
func (o *Orchestrator) HandleOffHook() {
	if s := o.active(); s != nil {
		o.log.Debug("Off-hook while call %s is active, ignoring", s.id)
		return
	}

	startedAt := o.now()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:            uuid.New(),
		startedAt:     startedAt,
		path:          RecordingPath(o.config.RecordingsDir, o.config.Extension, startedAt),
		cancel:        cancel,
		playbackDone:  make(chan struct{}),
		recordingDone: make(chan struct{}),
	}

	o.mu.Lock()
	o.current = s
	o.mu.Unlock()

	o.log.Info("Off-hook, call %s started, recording to %s", s.id, s.path)

	go o.greetThenBeep(ctx, s)
	go o.startRecording(s)
}

// HandleOnHook ends the active call and returns once playback and recording
// have both stopped. Stop failures are logged and the call is closed anyway.
func (o *Orchestrator) HandleOnHook() {
	s := o.active()
	if s == nil {
		o.log.Debug("On-hook while idle, ignoring")
		return
	}

	o.log.Info("On-hook, ending call %s", s.id)

	// Cancel first so a beep that has not started yet never starts
	s.cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := o.device.StopPlayback(); err != nil {
			o.log.Warn("Failed to stop playback for call %s: %v", s.id, err)
		}
		<-s.playbackDone
	}()

	go func() {
		defer wg.Done()
		<-s.recordingDone
		if !s.recording {
			return
		}
		if err := o.device.StopRecording(); err != nil {
			o.log.Warn("Failed to stop recording for call %s: %v", s.id, err)
		}
	}()

	wg.Wait()

	if s.interrupted {
		o.log.Debug("Playback for call %s was interrupted", s.id)
	}

	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()

	duration := o.now().Sub(s.startedAt).Round(time.Millisecond)
	if s.recording {
		o.log.Info("Call %s ended after %v, saved %s", s.id, duration, s.path)
	} else {
		o.log.Info("Call %s ended after %v without a recording", s.id, duration)
	}
}

// greetThenBeep plays the greeting and, only if it ran to completion, the beep
func (o *Orchestrator) greetThenBeep(ctx context.Context, s *session) {
	defer close(s.playbackDone)

	greeting := o.config.Greeting
	interrupted, err := o.device.Play(ctx, greeting.Path, greeting.Volume, greeting.StartDelay)
	if err != nil {
		o.log.Error("Failed to play greeting for call %s: %v", s.id, err)
		return
	}
	if interrupted || ctx.Err() != nil {
		s.interrupted = true
		o.log.Info("Greeting interrupted, skipping beep for call %s", s.id)
		return
	}

	beep := o.config.Beep
	interrupted, err = o.device.Play(ctx, beep.Path, beep.Volume, beep.StartDelay)
	if err != nil {
		o.log.Error("Failed to play beep for call %s: %v", s.id, err)
		return
	}
	s.interrupted = interrupted
}

// startRecording begins recording the call. It runs even when the call has
// already been ended so every session leaves a file; HandleOnHook waits for
// it before stopping. Failure leaves the call running with playback only.
func (o *Orchestrator) startRecording(s *session) {
	defer close(s.recordingDone)

	if err := o.device.StartRecording(s.path); err != nil {
		o.log.Error("Failed to start recording for call %s: %v", s.id, err)
		return
	}
	s.recording = true
	o.log.Debug("Recording started for call %s", s.id)
}

func (o *Orchestrator) active() *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Status returns a snapshot of the current state
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return Status{State: Idle}
	}
	return Status{
		State:     InCall,
		SessionID: o.current.id.String(),
		Path:      o.current.path,
		StartedAt: o.current.startedAt,
	}
}

// RecordingPath returns the recording file for a call that started at t
func RecordingPath(dir, ext string, t time.Time) string {
	return filepath.Join(dir, isoformat(t)+"."+strings.TrimPrefix(ext, "."))
}

// isoformat renders t as YYYY-MM-DDTHH:MM:SS with a six digit fraction only
// when the microsecond part is non-zero. The zone is omitted.
func isoformat(t time.Time) string {
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / 1000; us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s
}
