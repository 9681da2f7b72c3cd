//go:build hotkey

package hook

import (
	"fmt"
	"strings"
	"sync"

	"golang.design/x/hotkey"
)

// HotkeyConfig holds hotkey sensor configuration
type HotkeyConfig struct {
	Modifiers []hotkey.Modifier
	Key       hotkey.Key
	Mode      HotkeyMode
}

// keys maps configuration names onto hotkey keys
var keys = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"return": hotkey.KeyReturn,
	"enter":  hotkey.KeyReturn,
	"tab":    hotkey.KeyTab,
	"escape": hotkey.KeyEscape,
	"delete": hotkey.KeyDelete,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
}

// ParseKey resolves a key name such as "Space" or "H"
func ParseKey(name string) (hotkey.Key, error) {
	key, ok := keys[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported hotkey %q", ErrSensor, name)
	}
	return key, nil
}

// NewHotkey creates a sensor for Ctrl+Shift+<key>. hold selects PressToHold.
func NewHotkey(key string, hold bool) (Sensor, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	config := DefaultHotkeyConfig(k)
	if hold {
		config.Mode = PressToHold
	}
	return NewHotkeySensor(config), nil
}

// DefaultHotkeyConfig returns Ctrl+Shift+key in Toggle mode
func DefaultHotkeyConfig(key hotkey.Key) HotkeyConfig {
	return HotkeyConfig{
		Modifiers: []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift},
		Key:       key,
		Mode:      Toggle,
	}
}

// HotkeySensor simulates the hook switch with a global hotkey
type HotkeySensor struct {
	callbacks

	hk       *hotkey.Hotkey
	config   HotkeyConfig
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewHotkeySensor creates a sensor for the given hotkey
func NewHotkeySensor(config HotkeyConfig) *HotkeySensor {
	return &HotkeySensor{config: config}
}

// Start registers the hotkey with the system
func (s *HotkeySensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("hotkey is already running, call Close() first")
	}

	s.stopChan = make(chan struct{})

	hk := hotkey.New(s.config.Modifiers, s.config.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("%w: failed to register hotkey: %w", ErrSensor, err)
	}

	s.hk = hk
	s.running = true

	s.wg.Add(1)
	go s.listen()

	return nil
}

// listen turns key events into hook transitions
func (s *HotkeySensor) listen() {
	defer s.wg.Done()

	t := toggler{mode: s.config.Mode}

	for {
		select {
		case <-s.hk.Keydown():
			if e, ok := t.keydown(); ok {
				s.fire(e)
			}

		case <-s.hk.Keyup():
			if e, ok := t.keyup(); ok {
				s.fire(e)
			}

		case <-s.stopChan:
			return
		}
	}
}

// Close unregisters the hotkey and stops listening
func (s *HotkeySensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopChan)
	s.wg.Wait()

	var unregisterErr error
	if s.hk != nil {
		if err := s.hk.Unregister(); err != nil {
			unregisterErr = fmt.Errorf("failed to unregister hotkey: %w", err)
		}
	}

	// Cleared even on failure so Start can be retried
	s.running = false

	return unregisterErr
}
