//go:build !hotkey

package hook

import "fmt"

// NewHotkey reports that the binary was built without hotkey support. The
// hotkey library needs an X11 display as soon as it is linked, which a
// headless GPIO build must not depend on.
func NewHotkey(key string, hold bool) (Sensor, error) {
	return nil, fmt.Errorf("%w: built without hotkey support, rebuild with -tags hotkey", ErrSensor)
}
