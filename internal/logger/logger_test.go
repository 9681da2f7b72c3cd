package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func todayLogPath(dir string) string {
	return filepath.Join(dir, fmt.Sprintf("audio-guestbook-%s.log", time.Now().Format("20060102")))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Level != INFO {
		t.Errorf("Expected default level INFO, got %v", config.Level)
	}
	if config.RetentionDays != 14 {
		t.Errorf("Expected retention days 14, got %d", config.RetentionDays)
	}
	if config.LogDir != "" {
		t.Errorf("Expected console-only default, got log dir %q", config.LogDir)
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := tt.level.String(); result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"", INFO, false},
		{"warning", WARN, false},
		{" error ", ERROR, false},
		{"verbose", INFO, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoggingToFileAndConsole(t *testing.T) {
	tempDir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{
		LogDir:        tempDir,
		Level:         DEBUG,
		RetentionDays: 7,
		Console:       &console,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debug("Debug message")
	logger.Info("Info message %d", 2)
	logger.Warn("Warn message")
	logger.Error("Error message")

	content, err := os.ReadFile(todayLogPath(tempDir))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for _, out := range []string{string(content), console.String()} {
		for _, want := range []string{
			"[DEBUG] ", "Debug message",
			"[INFO] ", "Info message 2",
			"[WARN] ", "Warn message",
			"[ERROR] ", "Error message",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in output:\n%s", want, out)
			}
		}
	}
}

func TestLogLevel(t *testing.T) {
	var console bytes.Buffer

	logger, err := New(Config{Level: WARN, Console: &console})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debug("Debug message")
	logger.Info("Info message")
	logger.Warn("Warn message")
	logger.Error("Error message")

	out := console.String()
	if strings.Contains(out, "Debug message") || strings.Contains(out, "Info message") {
		t.Errorf("DEBUG and INFO should not be logged at WARN level:\n%s", out)
	}
	if !strings.Contains(out, "Warn message") || !strings.Contains(out, "Error message") {
		t.Errorf("WARN and ERROR should be logged:\n%s", out)
	}
}

func TestSetLevel(t *testing.T) {
	logger, err := New(Config{Level: INFO, Console: io.Discard})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.GetLevel() != INFO {
		t.Errorf("Expected initial level INFO, got %v", logger.GetLevel())
	}

	logger.SetLevel(DEBUG)

	if logger.GetLevel() != DEBUG {
		t.Errorf("Expected level DEBUG, got %v", logger.GetLevel())
	}
}

func TestCleanOldLogs(t *testing.T) {
	tempDir := t.TempDir()

	tenDaysAgo := time.Now().AddDate(0, 0, -10)
	oldLogPath := filepath.Join(tempDir, fmt.Sprintf("audio-guestbook-%s.log", tenDaysAgo.Format("20060102")))
	if err := os.WriteFile(oldLogPath, []byte("old log"), 0644); err != nil {
		t.Fatalf("Failed to create old log file: %v", err)
	}
	if err := os.Chtimes(oldLogPath, tenDaysAgo, tenDaysAgo); err != nil {
		t.Fatalf("Failed to change file times: %v", err)
	}

	logger, err := New(Config{
		LogDir:        tempDir,
		Level:         INFO,
		RetentionDays: 7,
		Console:       io.Discard,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(oldLogPath); !os.IsNotExist(err) {
		t.Error("Old log file should have been deleted")
	}
	if _, err := os.Stat(todayLogPath(tempDir)); os.IsNotExist(err) {
		t.Error("Current log file should exist")
	}
}
