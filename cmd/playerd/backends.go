package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"serialplayer/backend"
	"serialplayer/internal/pcmstream"
	"serialplayer/internal/serial"
	"serialplayer/player"
)

// openPort is swapped in tests.
var openPort = func(path string, baud int) (io.ReadWriteCloser, error) {
	return serial.Open(path, baud)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openBackend builds the configured adapter together with the resource it
// owns (serial port or PCM output). The caller closes it on shutdown.
func openBackend(cfg Config, logger *slog.Logger) (player.Backend, io.Closer, error) {
	switch cfg.Player.Backend {
	case "dfplayer", "md", "xy", "dy":
		port, err := openPort(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			return nil, nil, fmt.Errorf("open serial port: %w", err)
		}
		logger.Info("serial port open", "device", cfg.Serial.Device, "baud", cfg.Serial.Baud)
		return serialBackend(cfg.Player.Backend, port, logger), port, nil

	case "ak":
		out, closer, err := openStreamOutput(cfg.Stream.Output)
		if err != nil {
			return nil, nil, err
		}
		pipeline := pcmstream.NewPipeline(out, cfg.Stream.ChunkFrames, logger)
		return backend.NewAK(pcmstream.Dir(ExpandPath(cfg.Stream.Dir)), pipeline, logger), closer, nil

	case "noop":
		return backend.NewNoOp(logger), nopCloser{}, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Player.Backend)
}

func serialBackend(name string, w io.Writer, logger *slog.Logger) player.Backend {
	switch name {
	case "md":
		return backend.NewMDPlayer(w, logger)
	case "xy":
		return backend.NewXY(w, logger)
	case "dy":
		return backend.NewDY(backend.NewDYSerial(w), logger)
	default:
		return backend.NewDFPlayer(w, logger)
	}
}

func openStreamOutput(path string) (io.Writer, io.Closer, error) {
	if path == "-" {
		return os.Stdout, nopCloser{}, nil
	}
	if path == "" {
		return nil, nil, errors.New("stream output is empty")
	}
	f, err := os.OpenFile(ExpandPath(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open stream output: %w", err)
	}
	return f, f, nil
}
