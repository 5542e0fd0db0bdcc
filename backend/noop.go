package backend

import (
	"context"
	"log/slog"

	"serialplayer/player"
)

const (
	noopPlay player.Opcode = iota + 1
	noopStop
	noopVolume
	noopLoop
	noopEq
)

// NoOp accepts every intent and writes nothing. It keeps the controller's
// bookkeeping observable on machines without a module attached.
type NoOp struct {
	player.Gaps
	logger *slog.Logger
}

func NewNoOp(logger *slog.Logger) *NoOp {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NoOp{logger: logger.With("backend", "No Player")}
}

func (n *NoOp) Name() string                    { return "No Player" }
func (n *NoOp) Begin(ctx context.Context) error { return ctx.Err() }

func (n *NoOp) Translate(in player.Intent) (player.Command, bool) {
	switch in.Kind {
	case player.IntentPlay:
		return player.Command{Op: noopPlay, A: in.Value}, true
	case player.IntentStop:
		return player.Command{Op: noopStop}, true
	case player.IntentVolume:
		return player.Command{Op: noopVolume, A: in.Value}, true
	case player.IntentLoop:
		return player.Command{Op: noopLoop, A: in.Value}, true
	case player.IntentEqualizer:
		return player.Command{Op: noopEq, A: uint16(in.Preset)}, true
	}
	return player.Command{}, false
}

func (n *NoOp) SendCommand(cmd player.Command) error {
	if cmd.Op < noopPlay || cmd.Op > noopEq {
		return unknownOpcode(cmd.Op)
	}
	n.logger.Debug("discarding command", "cmd", n.CmdName(cmd.Op), "a", cmd.A)
	return nil
}

func (n *NoOp) IsPlayCommand(op player.Opcode) bool { return op == noopPlay }

func (n *NoOp) CmdName(op player.Opcode) string {
	switch op {
	case noopPlay:
		return "Play"
	case noopStop:
		return "Stop"
	case noopVolume:
		return "Volume"
	case noopLoop:
		return "Loop"
	case noopEq:
		return "Eq"
	}
	return "?"
}
