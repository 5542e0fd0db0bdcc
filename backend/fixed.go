package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"serialplayer/player"
)

// Fixed-frame module commands. The opcode is the wire command byte.
const (
	fixedSetVolume      player.Opcode = 0x06
	fixedSetEqualizer   player.Opcode = 0x07
	fixedSelectDevice   player.Opcode = 0x09
	fixedPlayFolderFile player.Opcode = 0x0F
	fixedStopPlay       player.Opcode = 0x16
	fixedSingleCycle    player.Opcode = 0x19
)

const (
	fixedDeviceTF     = 0x02
	fixedCycleOn      = 0x00
	fixedCycleOff     = 0x01
	fixedMaxEqualizer = player.EqBass
)

// FixedFrame drives modules speaking the 8-byte 7E..EF protocol. Tracks are
// addressed as folder/file, see player.DecodeFolderAndTrack.
type FixedFrame struct {
	player.Gaps
	name   string
	w      io.Writer
	logger *slog.Logger
}

// NewDFPlayer returns a backend for DFPlayer Mini modules.
func NewDFPlayer(w io.Writer, logger *slog.Logger) *FixedFrame {
	return newFixedFrame("DFPlayer", player.Gaps{Normal: 120 * time.Millisecond, AfterPlay: 250 * time.Millisecond}, w, logger)
}

// NewMDPlayer returns a backend for MD (YX5300 based) modules.
func NewMDPlayer(w io.Writer, logger *slog.Logger) *FixedFrame {
	return newFixedFrame("MD Player", player.Gaps{Normal: 100 * time.Millisecond, AfterPlay: 300 * time.Millisecond}, w, logger)
}

func newFixedFrame(name string, gaps player.Gaps, w io.Writer, logger *slog.Logger) *FixedFrame {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FixedFrame{Gaps: gaps, name: name, w: w, logger: logger.With("backend", name)}
}

func (f *FixedFrame) Name() string { return f.name }

// Begin selects the TF card as the playback device.
func (f *FixedFrame) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.logger.Debug("selecting TF card")
	if err := writeFrame(f.w, encodeFixedFrame(byte(fixedSelectDevice), fixedDeviceTF)); err != nil {
		return fmt.Errorf("select TF card: %w", err)
	}
	return nil
}

func (f *FixedFrame) Translate(in player.Intent) (player.Command, bool) {
	switch in.Kind {
	case player.IntentPlay:
		folder, track := player.DecodeFolderAndTrack(in.Value)
		if folder == 0 || track == 0 {
			f.logger.Warn("track has no folder/file address; not playing", "track", in.Value, "folder", folder, "file", track)
			return player.Command{}, false
		}
		return player.Command{Op: fixedPlayFolderFile, A: uint16(folder)<<8 | uint16(track)}, true
	case player.IntentStop:
		return player.Command{Op: fixedStopPlay}, true
	case player.IntentVolume:
		return player.Command{Op: fixedSetVolume, A: in.Value}, true
	case player.IntentLoop:
		mode := uint16(fixedCycleOff)
		if in.Value != 0 {
			mode = fixedCycleOn
		}
		return player.Command{Op: fixedSingleCycle, A: mode}, true
	case player.IntentEqualizer:
		eq := in.Preset
		if eq > fixedMaxEqualizer {
			eq = player.EqNormal
		}
		return player.Command{Op: fixedSetEqualizer, A: uint16(eq)}, true
	}
	return player.Command{}, false
}

func (f *FixedFrame) SendCommand(cmd player.Command) error {
	switch cmd.Op {
	case fixedSetVolume, fixedSetEqualizer, fixedSelectDevice, fixedPlayFolderFile, fixedStopPlay, fixedSingleCycle:
	default:
		f.logger.Warn("unknown command", "op", cmd.Op)
		return unknownOpcode(cmd.Op)
	}
	frame := encodeFixedFrame(byte(cmd.Op), cmd.A)
	f.logger.Debug("wire", "cmd", f.CmdName(cmd.Op), "frame", fmt.Sprintf("% X", frame))
	return writeFrame(f.w, frame)
}

func (f *FixedFrame) IsPlayCommand(op player.Opcode) bool { return op == fixedPlayFolderFile }

func (f *FixedFrame) CmdName(op player.Opcode) string {
	switch op {
	case fixedSetVolume:
		return "SetVolume"
	case fixedSetEqualizer:
		return "SetEqualizer"
	case fixedSelectDevice:
		return "SelectDevice"
	case fixedPlayFolderFile:
		return "PlayFolderFile"
	case fixedStopPlay:
		return "Stop"
	case fixedSingleCycle:
		return "SingleCycle"
	}
	return "?"
}
