package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWAVWriterProducesValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "call.wav")

	w, err := newWAVWriter(path, 16000, 1)
	if err != nil {
		t.Fatalf("newWAVWriter failed: %v", err)
	}
	chunk := make([]int16, 1600)
	for i := range chunk {
		chunk[i] = int16(i)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open recording: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("Expected a well-formed WAV file")
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("Unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("FullPCMBuffer failed: %v", err)
	}
	if len(buf.Data) != 3*len(chunk) {
		t.Errorf("Expected %d samples, got %d", 3*len(chunk), len(buf.Data))
	}
}

func TestWAVWriterEmptyRecordingIsWellFormed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	w, err := newWAVWriter(path, 44100, 2)
	if err != nil {
		t.Fatalf("newWAVWriter failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("Expected the WAV header to be written on Close")
	}
}

func TestLoadClip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.wav")
	w, err := newWAVWriter(path, 8000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write([]int16{1000, -1000, 2000, -2000}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	c, err := loadClip(path, 0.5)
	if err != nil {
		t.Fatalf("loadClip failed: %v", err)
	}
	if c.sampleRate != 8000 || c.channels != 1 {
		t.Errorf("Unexpected clip format: rate=%d chans=%d", c.sampleRate, c.channels)
	}
	want := []int16{500, -500, 1000, -1000}
	if len(c.samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(c.samples))
	}
	for i := range want {
		if c.samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, c.samples[i], want[i])
		}
	}
}

func TestLoadClipRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.wav")
	if err := os.WriteFile(path, []byte("not a wav file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadClip(path, 1); err == nil {
		t.Error("Expected error for invalid WAV file")
	}
}

func TestToInt16(t *testing.T) {
	tests := []struct {
		name     string
		data     []int
		bitDepth int
		volume   float64
		want     []int16
	}{
		{"16-bit passthrough", []int{100, -100}, 16, 1, []int16{100, -100}},
		{"16-bit muted", []int{100, -100}, 16, 0, []int16{0, 0}},
		{"8-bit unsigned", []int{128, 255, 0}, 8, 1, []int16{0, 127 << 8, -128 << 8}},
		{"24-bit", []int{1 << 16, -(1 << 16)}, 24, 1, []int16{1 << 8, -(1 << 8)}},
		{"volume clamps", []int{100}, 16, 3, []int16{100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toInt16(tt.data, tt.bitDepth, tt.volume)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}
