// Package hook reports handset transitions. Sensors invoke the registered
// callbacks from their own goroutine, once per transition; callbacks must
// only hand the event off and return.
package hook

import (
	"errors"
	"sync"
)

// ErrSensor means the hook switch cannot be read. It is fatal: without the
// switch the machine never answers.
var ErrSensor = errors.New("hook sensor failure")

// Event is a handset transition
type Event int

const (
	// OffHook means the handset was lifted
	OffHook Event = iota
	// OnHook means the handset was put back
	OnHook
)

// String returns the string representation of the event
func (e Event) String() string {
	switch e {
	case OffHook:
		return "OffHook"
	case OnHook:
		return "OnHook"
	default:
		return "Unknown"
	}
}

// Sensor reports hook transitions through registered callbacks
type Sensor interface {
	OnOffHook(fn func())
	OnOnHook(fn func())
	Start() error
	Close() error
}

// callbacks holds the registered handlers of a sensor
type callbacks struct {
	mu        sync.RWMutex
	offHookFn func()
	onHookFn  func()
}

// OnOffHook registers fn to run when the handset is lifted
func (c *callbacks) OnOffHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offHookFn = fn
}

// OnOnHook registers fn to run when the handset is put back
func (c *callbacks) OnOnHook(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHookFn = fn
}

func (c *callbacks) fire(e Event) {
	c.mu.RLock()
	fn := c.onHookFn
	if e == OffHook {
		fn = c.offHookFn
	}
	c.mu.RUnlock()

	if fn != nil {
		fn()
	}
}
