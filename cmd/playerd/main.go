package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serialplayer/internal/ipc"
	"serialplayer/player"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("playerd v%s\n", version)
	fmt.Println("Paced controller daemon for serial and file-streaming audio modules")
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// parseFlags returns the config file path, env file path and the overrides
// for flags that were set explicitly.
func parseFlags(fs *flag.FlagSet, args []string) (cfgPath, envPath string, o FlagOverrides, showVersion bool, err error) {
	fs.StringVar(&cfgPath, "config", "", "Path to YAML config file")
	fs.StringVar(&envPath, "env-file", "", "Path to a .env file (default: ./.env if present)")
	backend := fs.String("backend", "", "Player backend: dfplayer|md|xy|dy|ak|noop")
	device := fs.String("serial-device", "", "Serial device of the audio module (e.g. /dev/ttyUSB0)")
	baud := fs.Int("serial-baud", 0, "Serial baud rate")
	streamDir := fs.String("stream-dir", "", "Track directory for the ak backend")
	input := fs.String("input-device", "", "Linux input event device for the IR remote")
	socket := fs.String("ipc-socket", "", "Unix domain socket path for IPC")
	updateHz := fs.Int("update-hz", 0, "Controller update frequency in Hz")
	logLevel := fs.String("log-level", "", "Log level: error, warn, info, debug")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")

	if err = fs.Parse(args); err != nil {
		return
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			o.Backend = backend
		case "serial-device":
			o.SerialDevice = device
		case "serial-baud":
			o.SerialBaud = baud
		case "stream-dir":
			o.StreamDir = streamDir
		case "input-device":
			o.InputDevice = input
		case "ipc-socket":
			o.SocketPath = socket
		case "update-hz":
			o.UpdateHz = updateHz
		case "log-level":
			o.LogLevel = logLevel
		}
	})
	return
}

// loadConfig layers defaults, the YAML file, the environment and flags.
func loadConfig(cfgPath, envPath string, o FlagOverrides) (Config, error) {
	cfg := DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = LoadConfigFile(cfgPath); err != nil {
			return Config{}, err
		}
	}
	if err := loadDotEnv(envPath); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("playerd", flag.ContinueOnError)
	cfgPath, envPath, overrides, showVersion, err := parseFlags(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		printVersion()
		return nil
	}

	cfg, err := loadConfig(cfgPath, envPath, overrides)
	if err != nil {
		return err
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(level, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, closer, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctrl := player.New(b, cfg.ControllerConfig(), logger)
	ctrl.OnStatusChange(func(ev player.StatusChange) {
		logger.Info("playback", "status", ev.To, "track", ev.Track, "name", ev.Name)
	})

	if err := ctrl.Begin(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		// degraded: keep serving status so clients can see the failure
		logger.Error("player init failed", "error", err)
	}
	eq, _ := player.ParseEqualizerPreset(cfg.Player.Equalizer)
	if eq != player.EqNormal {
		ctrl.SetEqualizerPreset(eq)
	}

	calls := make(chan call, callQueueSize)
	keys := make(chan inputEvent, inputQueueSize)
	readErr := make(chan error, 1)

	if len(cfg.Input.Devices) > 0 {
		files, err := openInputDevices(cfg.Input.Devices)
		if err != nil {
			return fmt.Errorf("%w (run as root or add user to 'input' group)", err)
		}
		defer closeAll(files)
		startInputReaders(files, keys, readErr)
	}

	go func() {
		if err := ipc.Serve(ctx, cfg.IPC.SocketPath, callHandler(calls), logger); err != nil {
			readErr <- fmt.Errorf("ipc: %w", err)
		}
	}()

	logger.Info("listening",
		"player", b.Name(),
		"ipc", cfg.IPC.SocketPath,
		"input_devices", cfg.Input.Devices,
		"update_hz", cfg.Player.UpdateHz)

	d := newDaemon(ctrl, cfg.Input, logger)
	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	go func() {
		select {
		case err := <-readErr:
			logExit(logger, err)
			cancelLoop()
		case <-loopCtx.Done():
		}
	}()

	d.run(loopCtx, calls, keys, cfg.Player.UpdateHz)

	// Leave the module silent on the way out. Waiting one after-play gap
	// guarantees the pacing slot is ready.
	ctrl.Stop()
	time.Sleep(b.AfterPlayGap())
	ctrl.Update()
	logger.Info("shutting down")
	return nil
}

func logExit(logger *slog.Logger, err error) {
	if errors.Is(err, io.EOF) {
		logger.Error("input device closed")
		return
	}
	logger.Error("reader stopped", "error", err)
}
