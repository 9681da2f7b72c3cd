package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	// DEBUG level for detailed debugging information
	DEBUG Level = iota
	// INFO level for informational messages
	INFO
	// WARN level for warning messages
	WARN
	// ERROR level for error messages
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level: %q", s)
	}
}

// Logger writes leveled messages to stderr and, when a log directory is
// configured, to one file per day.
type Logger struct {
	mu            sync.RWMutex
	level         Level
	console       io.Writer
	file          *os.File
	loggers       map[Level]*log.Logger
	logDir        string
	currentDay    string
	retentionDays int
}

// Config holds logger configuration
type Config struct {
	// LogDir is the directory for daily log files. Empty disables file output.
	LogDir        string
	Level         Level
	RetentionDays int
	// Console receives every message in addition to the log file. Nil means stderr.
	Console io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:         INFO,
		RetentionDays: 14,
	}
}

// New creates a new logger
func New(config Config) (*Logger, error) {
	console := config.Console
	if console == nil {
		console = os.Stderr
	}

	l := &Logger{
		level:         config.Level,
		console:       console,
		logDir:        config.LogDir,
		retentionDays: config.RetentionDays,
	}

	if err := l.rotateLog(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return l, nil
}

// rotateLog opens today's log file if necessary and rebuilds the per-level loggers
func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("20060102")
	if l.loggers != nil && (l.logDir == "" || l.currentDay == today) {
		return nil
	}

	out := l.console
	if l.logDir != "" {
		if l.file != nil {
			l.file.Close()
			l.file = nil
		}

		if err := os.MkdirAll(l.logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		filePath := filepath.Join(l.logDir, fmt.Sprintf("audio-guestbook-%s.log", today))
		file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}

		l.file = file
		out = io.MultiWriter(file, l.console)
	}
	l.currentDay = today

	l.loggers = make(map[Level]*log.Logger, 4)
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		l.loggers[level] = log.New(out, "["+level.String()+"] ", log.LstdFlags|log.Lmicroseconds)
	}

	if l.logDir != "" {
		if err := l.cleanOldLogs(); err != nil {
			l.loggers[WARN].Printf("Failed to clean old logs: %v", err)
		}
	}

	return nil
}

// cleanOldLogs deletes log files older than retentionDays
func (l *Logger) cleanOldLogs() error {
	if l.retentionDays <= 0 {
		return nil
	}
	cutoffDate := time.Now().AddDate(0, 0, -l.retentionDays)

	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffDate) {
			// Continue even if we can't delete a file
			_ = os.Remove(filepath.Join(l.logDir, entry.Name()))
		}
	}

	return nil
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.mu.RLock()
	enabled := l.level <= level
	currentDay := l.currentDay
	l.mu.RUnlock()

	if !enabled {
		return
	}

	if l.logDir != "" && currentDay != time.Now().Format("20060102") {
		if err := l.rotateLog(); err != nil {
			// Can't log this error since logging is failing
			fmt.Fprintf(os.Stderr, "Failed to rotate log: %v\n", err)
		}
	}

	l.mu.RLock()
	lg := l.loggers[level]
	l.mu.RUnlock()
	if lg != nil {
		lg.Printf(format, v...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) { l.logf(DEBUG, format, v...) }

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) { l.logf(INFO, format, v...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) { l.logf(WARN, format, v...) }

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) { l.logf(ERROR, format, v...) }

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.level
}
