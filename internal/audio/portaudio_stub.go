//go:build !portaudio

package audio

import "fmt"

// NewPortAudioDevice reports that the binary was built without PortAudio
func NewPortAudioDevice(config Config) (Device, error) {
	return nil, fmt.Errorf("%w: built without PortAudio support, rebuild with -tags portaudio", ErrStart)
}
