package hook

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpioutil"
	"periph.io/x/host/v3"
)

// Polarity describes how the hook switch is wired
type Polarity string

const (
	// NormallyOpen switches close when the handset is lifted. The pin is
	// pulled down and reads High while off-hook.
	NormallyOpen Polarity = "NO"
	// NormallyClosed switches open when the handset is lifted. The pin is
	// pulled up and reads Low while off-hook.
	NormallyClosed Polarity = "NC"
)

// GPIOConfig holds GPIO sensor configuration
type GPIOConfig struct {
	// Pin is the periph pin name or BCM number, e.g. "22" or "GPIO22".
	Pin      string
	Polarity Polarity
	// BounceTime suppresses edges closer together than this. Zero disables it.
	BounceTime time.Duration
	// PollInterval bounds how long the listener waits for an edge before
	// re-reading the level and checking for Close.
	PollInterval time.Duration
}

// GPIOSensor reads the hook switch from a GPIO pin
type GPIOSensor struct {
	callbacks

	config   GPIOConfig
	pin      gpio.PinIO
	offLevel gpio.Level
	offHook  bool

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewGPIOSensor creates a sensor for the pin named in config
func NewGPIOSensor(config GPIOConfig) *GPIOSensor {
	return newGPIOSensor(nil, config)
}

// newGPIOSensor creates a sensor for an already resolved pin
func newGPIOSensor(pin gpio.PinIO, config GPIOConfig) *GPIOSensor {
	if config.PollInterval <= 0 {
		config.PollInterval = 500 * time.Millisecond
	}
	if config.Polarity == "" {
		config.Polarity = NormallyClosed
	}
	return &GPIOSensor{config: config, pin: pin}
}

// pullAndLevel returns the pull resistor and the off-hook level for a polarity
func pullAndLevel(p Polarity) (gpio.Pull, gpio.Level, error) {
	switch p {
	case NormallyOpen:
		return gpio.PullDown, gpio.High, nil
	case NormallyClosed:
		return gpio.PullUp, gpio.Low, nil
	default:
		return gpio.PullNoChange, gpio.Low, fmt.Errorf("%w: unknown hook polarity %q", ErrSensor, p)
	}
}

// Start configures the pin and begins watching it
func (s *GPIOSensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("hook sensor is already running")
	}

	pull, offLevel, err := pullAndLevel(s.config.Polarity)
	if err != nil {
		return err
	}

	pin := s.pin
	if pin == nil {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("%w: failed to initialize GPIO host: %w", ErrSensor, err)
		}
		pin = gpioreg.ByName(s.config.Pin)
		if pin == nil {
			return fmt.Errorf("%w: GPIO pin %q not found", ErrSensor, s.config.Pin)
		}
	}

	if s.config.BounceTime > 0 {
		debounced, err := gpioutil.Debounce(pin, 0, s.config.BounceTime, gpio.BothEdges)
		if err != nil {
			return fmt.Errorf("%w: failed to debounce %s: %w", ErrSensor, pin, err)
		}
		pin = debounced
	}

	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return fmt.Errorf("%w: failed to configure %s as input: %w", ErrSensor, pin, err)
	}

	s.pin = pin
	s.offLevel = offLevel
	s.offHook = pin.Read() == offLevel
	s.stopChan = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.listen()

	return nil
}

// OffHook reports the last level seen by the listener
func (s *GPIOSensor) OffHook() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offHook
}

// listen waits for edges and fires a callback whenever the level changes.
// Edges that do not change the level are dropped.
func (s *GPIOSensor) listen() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.pin.WaitForEdge(s.config.PollInterval)

		offHook := s.pin.Read() == s.offLevel

		s.mu.Lock()
		changed := offHook != s.offHook
		s.offHook = offHook
		s.mu.Unlock()

		if !changed {
			continue
		}
		if offHook {
			s.fire(OffHook)
		} else {
			s.fire(OnHook)
		}
	}
}

// Close stops the listener and releases the pin
func (s *GPIOSensor) Close() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()

	if err := s.pin.Halt(); err != nil {
		return fmt.Errorf("failed to halt %s: %w", s.pin, err)
	}
	return nil
}
