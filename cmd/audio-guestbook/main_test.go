package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/audio"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/config"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/hook"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Greeting = "/sounds/greeting.wav"
	cfg.Beep = "/sounds/beep.wav"
	cfg.RecordingsPath = "/recordings"
	return cfg
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Errorf("Expected version %s in output, got %q", version, out.String())
	}
}

// TestMainExitCode re-runs the test binary as the command itself.
func TestMainExitCode(t *testing.T) {
	if path := os.Getenv("AUDIO_GUESTBOOK_TEST_CONFIG"); path != "" {
		os.Args = []string{"audio-guestbook", "--config", path}
		main()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestMainExitCode$")
	cmd.Env = append(os.Environ(), "AUDIO_GUESTBOOK_TEST_CONFIG="+filepath.Join(t.TempDir(), "missing.yaml"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected the command to fail, got %v", err)
	}
	if code := exitErr.ExitCode(); code != 1 {
		t.Errorf("Expected exit code 1 for a missing config, got %d: %s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Errorf("Expected an error message on stderr, got %q", stderr.String())
	}
}

func TestRunMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := cmd.Execute(); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("Expected ErrInvalid for a missing config, got %v", err)
	}
}

func TestNewDeviceALSA(t *testing.T) {
	d, err := newDevice(testConfig())
	if err != nil {
		t.Fatalf("newDevice failed: %v", err)
	}
	if _, ok := d.(*audio.ALSADevice); !ok {
		t.Errorf("Expected *audio.ALSADevice, got %T", d)
	}
}

func TestNewSensor(t *testing.T) {
	cfg := testConfig()

	s, err := newSensor(cfg)
	if err != nil {
		t.Fatalf("newSensor failed: %v", err)
	}
	if _, ok := s.(*hook.GPIOSensor); !ok {
		t.Errorf("Expected *hook.GPIOSensor, got %T", s)
	}
}

func TestNewLoggerOverride(t *testing.T) {
	cfg := testConfig()

	log, err := newLogger(cfg, "debug")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	defer log.Close()
	if got := log.GetLevel().String(); got != "DEBUG" {
		t.Errorf("Expected DEBUG level, got %s", got)
	}

	if _, err := newLogger(cfg, "chatty"); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("Expected ErrInvalid for an unknown level, got %v", err)
	}
}
