package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"
)

const mixerWaitDelay = time.Second

// Mixer sets the playback volume through an ALSA simple mixer control.
// A Mixer without a control name does nothing.
type Mixer struct {
	command string
	control string
	card    string
}

// NewMixer creates a mixer for control on the card named by hwMapping
func NewMixer(command, control, hwMapping string) *Mixer {
	if command == "" {
		command = "amixer"
	}
	return &Mixer{
		command: command,
		control: strings.TrimSpace(control),
		card:    cardFromMapping(hwMapping),
	}
}

// SetVolume sets the control to volume, a fraction between 0 and 1.
func (m *Mixer) SetVolume(ctx context.Context, volume float64) error {
	if m == nil || m.control == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, m.command, m.args(volume)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = mixerWaitDelay
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to set mixer %q volume: %w: %s", m.control, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

func (m *Mixer) args(volume float64) []string {
	var args []string
	if m.card != "" {
		args = append(args, "-c", m.card)
	}
	return append(args, "-q", "sset", m.control, fmt.Sprintf("%d%%", volumePercent(volume)))
}

func volumePercent(volume float64) int {
	return int(math.Round(math.Max(0, math.Min(1, volume)) * 100))
}

// cardFromMapping extracts the card from an ALSA device string:
// "plughw:1,0" -> "1", "hw:CARD=Device,DEV=0" -> "Device", "default" -> "".
func cardFromMapping(mapping string) string {
	_, rest, ok := strings.Cut(mapping, ":")
	if !ok {
		return ""
	}
	for _, field := range strings.Split(rest, ",") {
		if v, found := strings.CutPrefix(field, "CARD="); found {
			return v
		}
	}
	if strings.Contains(rest, "=") {
		return ""
	}
	card, _, _ := strings.Cut(rest, ",")
	return card
}
