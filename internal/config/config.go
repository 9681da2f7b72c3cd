package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when the configuration file is missing, unparsable or
// fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Hook polarities
const (
	HookNormallyOpen   = "NO"
	HookNormallyClosed = "NC"
)

// Audio backends
const (
	BackendALSA      = "alsa"
	BackendPortAudio = "portaudio"
)

// Hook sources
const (
	SourceGPIO   = "gpio"
	SourceHotkey = "hotkey"
)

// Hotkey modes
const (
	HotkeyToggle = "toggle"
	HotkeyHold   = "hold"
)

// Config holds the answering machine configuration. It is loaded once at
// startup and treated as read-only afterwards.
type Config struct {
	// Audio device
	AudioBackend     string `yaml:"audio_backend"`
	ALSAHWMapping    string `yaml:"alsa_hw_mapping"`
	Format           string `yaml:"format"`
	FileType         string `yaml:"file_type"`
	RecordingLimit   int    `yaml:"recording_limit"` // seconds, 0 disables the limit
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	MixerControlName string `yaml:"mixer_control_name"`

	// Hook switch
	HookSource     string  `yaml:"hook_source"`
	HookGPIO       int     `yaml:"hook_gpio"`
	HookType       string  `yaml:"hook_type"`        // "NO" or "NC"
	HookBounceTime float64 `yaml:"hook_bounce_time"` // seconds
	HotkeyKey      string  `yaml:"hotkey_key"`
	HotkeyMode     string  `yaml:"hotkey_mode"` // "toggle" or "hold"

	// Greeting and beep
	Greeting           string  `yaml:"greeting"`
	GreetingVolume     float64 `yaml:"greeting_volume"`
	GreetingStartDelay float64 `yaml:"greeting_start_delay"` // seconds
	Beep               string  `yaml:"beep"`
	BeepVolume         float64 `yaml:"beep_volume"`
	BeepStartDelay     float64 `yaml:"beep_start_delay"` // seconds

	RecordingsPath string `yaml:"recordings_path"`

	// Logging
	LogDir   string `yaml:"log_dir"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used for every key the file omits.
// Greeting, beep and recordings_path have no sensible default and must be set.
func DefaultConfig() *Config {
	return &Config{
		AudioBackend:   BackendALSA,
		ALSAHWMapping:  "default",
		Format:         "cd",
		FileType:       "wav",
		RecordingLimit: 300,
		SampleRate:     44100,
		Channels:       2,
		HookSource:     SourceGPIO,
		HookGPIO:       22,
		HookType:       HookNormallyClosed,
		HotkeyKey:      "Space",
		HotkeyMode:     HotkeyToggle,
		GreetingVolume: 1.0,
		BeepVolume:     1.0,
		LogLevel:       "info",
	}
}

// Load reads the YAML configuration at path on top of DefaultConfig and
// validates it. Unlike the settings file of a desktop app a missing file is an
// error: the machine cannot answer without greeting and recording paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrInvalid, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %w", ErrInvalid, err)
	}

	config.HookType = strings.ToUpper(strings.TrimSpace(config.HookType))
	config.AudioBackend = strings.ToLower(strings.TrimSpace(config.AudioBackend))
	config.HookSource = strings.ToLower(strings.TrimSpace(config.HookSource))
	config.HotkeyMode = strings.ToLower(strings.TrimSpace(config.HotkeyMode))

	for _, p := range []*string{&config.Greeting, &config.Beep, &config.RecordingsPath, &config.LogDir} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		*p = expanded
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	if c.Greeting == "" {
		return fmt.Errorf("%w: greeting is not set", ErrInvalid)
	}
	if c.Beep == "" {
		return fmt.Errorf("%w: beep is not set", ErrInvalid)
	}
	if c.RecordingsPath == "" {
		return fmt.Errorf("%w: recordings_path is not set", ErrInvalid)
	}

	if c.AudioBackend != BackendALSA && c.AudioBackend != BackendPortAudio {
		return fmt.Errorf("%w: invalid audio_backend: %s (must be '%s' or '%s')", ErrInvalid, c.AudioBackend, BackendALSA, BackendPortAudio)
	}
	if c.HookSource != SourceGPIO && c.HookSource != SourceHotkey {
		return fmt.Errorf("%w: invalid hook_source: %s (must be '%s' or '%s')", ErrInvalid, c.HookSource, SourceGPIO, SourceHotkey)
	}
	if c.HookType != HookNormallyOpen && c.HookType != HookNormallyClosed {
		return fmt.Errorf("%w: invalid hook_type: %s (must be 'NO' or 'NC')", ErrInvalid, c.HookType)
	}
	if c.HookSource == SourceHotkey && c.HotkeyMode != HotkeyToggle && c.HotkeyMode != HotkeyHold {
		return fmt.Errorf("%w: invalid hotkey_mode: %s (must be '%s' or '%s')", ErrInvalid, c.HotkeyMode, HotkeyToggle, HotkeyHold)
	}
	if c.HookSource == SourceGPIO && c.HookGPIO < 0 {
		return fmt.Errorf("%w: invalid hook_gpio: %d", ErrInvalid, c.HookGPIO)
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: invalid sample_rate: %d", ErrInvalid, c.SampleRate)
	}
	if c.Channels <= 0 || c.Channels > 8 {
		return fmt.Errorf("%w: invalid channels: %d (must be between 1 and 8)", ErrInvalid, c.Channels)
	}
	if c.RecordingLimit < 0 {
		return fmt.Errorf("%w: invalid recording_limit: %d", ErrInvalid, c.RecordingLimit)
	}
	if c.FileType == "" {
		return fmt.Errorf("%w: file_type cannot be empty", ErrInvalid)
	}

	for name, v := range map[string]float64{"greeting_volume": c.GreetingVolume, "beep_volume": c.BeepVolume} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: invalid %s: %g (must be between 0 and 1)", ErrInvalid, name, v)
		}
	}
	for name, v := range map[string]float64{
		"greeting_start_delay": c.GreetingStartDelay,
		"beep_start_delay":     c.BeepStartDelay,
		"hook_bounce_time":     c.HookBounceTime,
	} {
		if v < 0 {
			return fmt.Errorf("%w: invalid %s: %g (must not be negative)", ErrInvalid, name, v)
		}
	}

	return nil
}

// GreetingDelay returns greeting_start_delay as a duration
func (c *Config) GreetingDelay() time.Duration { return seconds(c.GreetingStartDelay) }

// BeepDelay returns beep_start_delay as a duration
func (c *Config) BeepDelay() time.Duration { return seconds(c.BeepStartDelay) }

// BounceTime returns hook_bounce_time as a duration
func (c *Config) BounceTime() time.Duration { return seconds(c.HookBounceTime) }

// MaxRecording returns recording_limit as a duration; zero means unlimited.
func (c *Config) MaxRecording() time.Duration {
	return time.Duration(c.RecordingLimit) * time.Second
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}
