package audio

import (
	"errors"
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavWriter streams 16-bit PCM into a WAV file. The header is only complete
// after Close, which must run even when recording is cut short.
type wavWriter struct {
	file *os.File
	enc  *wav.Encoder
	buf  *goaudio.IntBuffer
}

func newWAVWriter(path string, sampleRate, channels int) (*wavWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &wavWriter{
		file: f,
		enc:  wav.NewEncoder(f, sampleRate, 16, channels, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write appends interleaved samples
func (w *wavWriter) Write(samples []int16) error {
	if cap(w.buf.Data) < len(samples) {
		w.buf.Data = make([]int, len(samples))
	}
	w.buf.Data = w.buf.Data[:len(samples)]
	for i, s := range samples {
		w.buf.Data[i] = int(s)
	}
	return w.enc.Write(w.buf)
}

// Close writes the final header and closes the file
func (w *wavWriter) Close() error {
	return errors.Join(w.enc.Close(), w.file.Close())
}

// clip is a decoded WAV file converted to 16-bit samples
type clip struct {
	samples    []int16
	sampleRate int
	channels   int
}

func loadClip(path string, volume float64) (*clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &clip{
		samples:    toInt16(buf.Data, int(dec.BitDepth), volume),
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
	}, nil
}

// toInt16 converts decoded samples of the given bit depth to 16 bits and
// applies volume as a linear gain.
func toInt16(data []int, bitDepth int, volume float64) []int16 {
	gain := math.Max(0, math.Min(1, volume))
	out := make([]int16, len(data))
	for i, v := range data {
		switch bitDepth {
		case 8:
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		s := math.Round(float64(v) * gain)
		out[i] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, s)))
	}
	return out
}
