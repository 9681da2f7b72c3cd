//go:build hotkey

package main

import (
	"errors"
	"testing"

	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/config"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/hook"
)

func TestNewSensorHotkey(t *testing.T) {
	cfg := testConfig()
	cfg.HookSource = config.SourceHotkey

	s, err := newSensor(cfg)
	if err != nil {
		t.Fatalf("newSensor failed: %v", err)
	}
	if _, ok := s.(*hook.HotkeySensor); !ok {
		t.Errorf("Expected *hook.HotkeySensor, got %T", s)
	}

	cfg.HotkeyKey = "F13"
	if _, err := newSensor(cfg); !errors.Is(err, hook.ErrSensor) {
		t.Errorf("Expected ErrSensor for an unsupported key, got %v", err)
	}
}
