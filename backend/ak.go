package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"serialplayer/player"
)

// Storage opens track files by absolute path ("/00001.mp3").
type Storage interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// Pipeline decodes a source and copies audio to the output in chunks.
type Pipeline interface {
	// Start takes ownership of src, closing any previous source.
	Start(src io.ReadSeekCloser) error
	// Copy moves one chunk. more is false at end of stream.
	Copy() (more bool, err error)
	// Rewind restarts the current source from its first frame.
	Rewind() error
	// SetGain sets the linear output gain, 0.0 to 1.0.
	SetGain(g float64)
	// Stop closes the current source. Safe to call when idle.
	Stop()
}

const (
	akPlay player.Opcode = iota + 1
	akStop
	akVolume
)

// AK streams MP3 files from local storage through a Pipeline. It reports end
// of stream to the controller, which owns the loop decision.
type AK struct {
	player.Gaps
	storage  Storage
	pipeline Pipeline
	logger   *slog.Logger

	streaming bool
	current   string
}

func NewAK(storage Storage, pipeline Pipeline, logger *slog.Logger) *AK {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AK{
		Gaps:     player.Gaps{Normal: 30 * time.Millisecond, AfterPlay: 60 * time.Millisecond},
		storage:  storage,
		pipeline: pipeline,
		logger:   logger.With("backend", "AK Player"),
	}
}

func (a *AK) Name() string { return "AK Player" }

func (a *AK) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.storage == nil || a.pipeline == nil {
		return errors.New("storage and pipeline are required")
	}
	return nil
}

func (a *AK) Translate(in player.Intent) (player.Command, bool) {
	switch in.Kind {
	case player.IntentPlay:
		return player.Command{Op: akPlay, A: in.Value}, true
	case player.IntentStop:
		return player.Command{Op: akStop}, true
	case player.IntentVolume:
		return player.Command{Op: akVolume, A: in.Value}, true
	}
	// loop is handled by the controller via Restart; no EQ stage
	return player.Command{}, false
}

func (a *AK) SendCommand(cmd player.Command) error {
	switch cmd.Op {
	case akPlay:
		return a.play(player.TrackPath(cmd.A))
	case akStop:
		a.pipeline.Stop()
		a.streaming = false
		a.logger.Debug("stream closed", "path", a.current)
		a.current = ""
		return nil
	case akVolume:
		g := float64(min(cmd.A, player.MaxVolume)) / player.MaxVolume
		a.pipeline.SetGain(g)
		a.logger.Debug("gain", "volume", cmd.A, "gain", g)
		return nil
	}
	a.logger.Warn("unknown command", "op", cmd.Op)
	return unknownOpcode(cmd.Op)
}

func (a *AK) play(path string) error {
	f, err := a.storage.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if err := a.pipeline.Start(f); err != nil {
		a.streaming = false
		return fmt.Errorf("start %s: %w", path, err)
	}
	a.streaming = true
	a.current = path
	a.logger.Debug("stream opened", "path", path)
	return nil
}

// Poll copies one chunk. It reports true exactly once when the stream ends
// or fails; the source stays open so Restart can rewind it.
func (a *AK) Poll(time.Time) bool {
	if !a.streaming {
		return false
	}
	more, err := a.pipeline.Copy()
	if err != nil {
		a.logger.Warn("stream copy failed", "path", a.current, "error", err)
		a.streaming = false
		return true
	}
	if !more {
		a.logger.Debug("end of stream", "path", a.current)
		a.streaming = false
		return true
	}
	return false
}

// Restart rewinds the current source.
func (a *AK) Restart() error {
	if a.current == "" {
		return errors.New("nothing to restart")
	}
	if err := a.pipeline.Rewind(); err != nil {
		return fmt.Errorf("rewind %s: %w", a.current, err)
	}
	a.streaming = true
	return nil
}

func (a *AK) IsPlayCommand(op player.Opcode) bool { return op == akPlay }

func (a *AK) CmdName(op player.Opcode) string {
	switch op {
	case akPlay:
		return "Play"
	case akStop:
		return "Stop"
	case akVolume:
		return "Volume"
	}
	return "?"
}
