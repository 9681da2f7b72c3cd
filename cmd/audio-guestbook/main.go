// Command audio-guestbook turns a rotary phone into an answering machine.
//
// Lifting the handset plays a greeting and a beep and records the caller
// until the handset is put back. Each call is saved as one file named after
// the time the handset was lifted.
//
// Usage:
//
//	audio-guestbook [--config config.yaml] [--log-level debug]
//	audio-guestbook version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/audio"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/call"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/config"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/hook"
	"github.com/4br3mm0rd/rotary-phone-audio-guestbook/internal/logger"
)

const version = "0.1.0"

type options struct {
	configPath string
	logLevel   string
}

func main() {
	code := 0
	runOnMainThread(func() {
		if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			code = 1
		}
	})
	os.Exit(code)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "audio-guestbook",
		Short: "Rotary phone answering machine",
		Long: `Rotary phone answering machine.

Watches the hook switch of a rotary phone. Lifting the handset plays the
greeting followed by a beep and records the caller until the handset is
put back. Recordings are saved under recordings_path, one file per call.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "audio-guestbook v%s\n", version)
		},
	})

	return rootCmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, opts.logLevel)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info("Audio guestbook v%s starting", version)
	log.Info("Loaded configuration from %s", opts.configPath)

	device, err := newDevice(cfg)
	if err != nil {
		log.Error("Failed to initialize audio backend %s: %v", cfg.AudioBackend, err)
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Warn("Failed to close audio device: %v", err)
		}
	}()
	log.Info("Audio backend: %s (%s)", cfg.AudioBackend, cfg.ALSAHWMapping)

	orch := call.New(device, log, call.Config{
		RecordingsDir: cfg.RecordingsPath,
		Extension:     cfg.FileType,
		Greeting: call.Clip{
			Path:       cfg.Greeting,
			Volume:     cfg.GreetingVolume,
			StartDelay: cfg.GreetingDelay(),
		},
		Beep: call.Clip{
			Path:       cfg.Beep,
			Volume:     cfg.BeepVolume,
			StartDelay: cfg.BeepDelay(),
		},
	})

	sensor, err := newSensor(cfg)
	if err != nil {
		log.Error("Failed to create hook sensor: %v", err)
		return err
	}
	sensor.OnOffHook(func() { orch.Submit(hook.OffHook) })
	sensor.OnOnHook(func() { orch.Submit(hook.OnHook) })

	if err := sensor.Start(); err != nil {
		log.Error("Failed to start hook sensor: %v", err)
		return err
	}
	defer func() {
		if err := sensor.Close(); err != nil {
			log.Warn("Failed to close hook sensor: %v", err)
		}
	}()
	log.Info("Hook sensor: %s", describeSensor(cfg))
	if gs, ok := sensor.(*hook.GPIOSensor); ok && gs.OffHook() {
		log.Warn("Handset is off the hook at startup, hang it up to answer the next call")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Waiting for calls, recordings go to %s", cfg.RecordingsPath)
	orch.Run(ctx)
	log.Info("Shutting down")

	return nil
}

func newLogger(cfg *config.Config, override string) (*logger.Logger, error) {
	name := cfg.LogLevel
	if override != "" {
		name = override
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	logConfig := logger.DefaultConfig()
	logConfig.LogDir = cfg.LogDir
	logConfig.Level = level
	return logger.New(logConfig)
}

func newDevice(cfg *config.Config) (audio.Device, error) {
	audioConfig := audio.DefaultConfig()
	audioConfig.HWMapping = cfg.ALSAHWMapping
	audioConfig.Format = cfg.Format
	audioConfig.FileType = cfg.FileType
	audioConfig.SampleRate = cfg.SampleRate
	audioConfig.Channels = cfg.Channels
	audioConfig.MixerControl = cfg.MixerControlName
	audioConfig.RecordingLimit = cfg.MaxRecording()

	switch cfg.AudioBackend {
	case config.BackendPortAudio:
		d, err := audio.NewPortAudioDevice(audioConfig)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return audio.NewALSADevice(audioConfig), nil
	}
}

func newSensor(cfg *config.Config) (hook.Sensor, error) {
	switch cfg.HookSource {
	case config.SourceHotkey:
		return hook.NewHotkey(cfg.HotkeyKey, cfg.HotkeyMode == config.HotkeyHold)
	default:
		return hook.NewGPIOSensor(hook.GPIOConfig{
			Pin:        strconv.Itoa(cfg.HookGPIO),
			Polarity:   hook.Polarity(cfg.HookType),
			BounceTime: cfg.BounceTime(),
		}), nil
	}
}

func describeSensor(cfg *config.Config) string {
	if cfg.HookSource == config.SourceHotkey {
		return fmt.Sprintf("hotkey Ctrl+Shift+%s (%s)", cfg.HotkeyKey, cfg.HotkeyMode)
	}
	return fmt.Sprintf("GPIO%d (%s)", cfg.HookGPIO, cfg.HookType)
}
