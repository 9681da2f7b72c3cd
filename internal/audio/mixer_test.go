package audio

import (
	"context"
	"reflect"
	"testing"
)

func TestCardFromMapping(t *testing.T) {
	tests := []struct {
		mapping string
		want    string
	}{
		{"default", ""},
		{"plughw:1,0", "1"},
		{"hw:0", "0"},
		{"hw:CARD=Device,DEV=0", "Device"},
		{"plughw:DEV=0", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mapping, func(t *testing.T) {
			if got := cardFromMapping(tt.mapping); got != tt.want {
				t.Errorf("cardFromMapping(%q) = %q, want %q", tt.mapping, got, tt.want)
			}
		})
	}
}

func TestVolumePercent(t *testing.T) {
	tests := []struct {
		volume float64
		want   int
	}{
		{0, 0},
		{0.5, 50},
		{0.333, 33},
		{1, 100},
		{1.5, 100},
		{-1, 0},
	}

	for _, tt := range tests {
		if got := volumePercent(tt.volume); got != tt.want {
			t.Errorf("volumePercent(%g) = %d, want %d", tt.volume, got, tt.want)
		}
	}
}

func TestMixerArgs(t *testing.T) {
	m := NewMixer("", "Speaker", "plughw:1,0")
	want := []string{"-c", "1", "-q", "sset", "Speaker", "80%"}
	if got := m.args(0.8); !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}

	m = NewMixer("", "PCM", "default")
	want = []string{"-q", "sset", "PCM", "100%"}
	if got := m.args(1); !reflect.DeepEqual(got, want) {
		t.Errorf("args = %v, want %v", got, want)
	}
}

func TestMixerWithoutControlIsNoop(t *testing.T) {
	m := NewMixer("/nonexistent/amixer", "", "plughw:1,0")
	if err := m.SetVolume(context.Background(), 0.5); err != nil {
		t.Errorf("Expected no-op, got %v", err)
	}

	var nilMixer *Mixer
	if err := nilMixer.SetVolume(context.Background(), 0.5); err != nil {
		t.Errorf("Expected nil mixer to be a no-op, got %v", err)
	}
}

func TestMixerCommandFailure(t *testing.T) {
	m := NewMixer("/nonexistent/amixer", "Speaker", "default")
	if err := m.SetVolume(context.Background(), 0.5); err == nil {
		t.Error("Expected error for missing amixer binary")
	}
}
