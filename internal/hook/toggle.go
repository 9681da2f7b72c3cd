package hook

// HotkeyMode defines how the key maps onto the handset
type HotkeyMode int

const (
	// Toggle mode: first press lifts the handset, second press hangs up.
	// X11 keyboard autorepeat sends Keydown repeatedly while held, so this
	// is the default.
	Toggle HotkeyMode = iota
	// PressToHold mode: the handset is off-hook while the key is held down
	PressToHold
)

// toggler tracks the simulated handset position
type toggler struct {
	mode    HotkeyMode
	offHook bool
}

func (t *toggler) keydown() (Event, bool) {
	switch t.mode {
	case PressToHold:
		if t.offHook {
			return OffHook, false
		}
		t.offHook = true
		return OffHook, true
	default:
		t.offHook = !t.offHook
		if t.offHook {
			return OffHook, true
		}
		return OnHook, true
	}
}

func (t *toggler) keyup() (Event, bool) {
	if t.mode != PressToHold || !t.offHook {
		return OnHook, false
	}
	t.offHook = false
	return OnHook, true
}
