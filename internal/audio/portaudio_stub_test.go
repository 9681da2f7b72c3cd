//go:build !portaudio

package audio

import (
	"errors"
	"testing"
)

func TestNewPortAudioDeviceUnavailable(t *testing.T) {
	d, err := NewPortAudioDevice(DefaultConfig())
	if !errors.Is(err, ErrStart) {
		t.Fatalf("Expected ErrStart without PortAudio support, got %v", err)
	}
	if d != nil {
		t.Errorf("Expected no device, got %T", d)
	}
}
