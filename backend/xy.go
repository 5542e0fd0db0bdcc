package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"serialplayer/player"
)

const (
	xyPlayTrack player.Opcode = iota + 1
	xyStop
	xyLoopOn
	xyLoopOff
	xyVolume
	xyEq
)

// XY-V17B wire commands
const (
	xyWireSpecifySong = 0x07
	xyWireStop        = 0x04
	xyWireSelectDrive = 0x0B
	xyWireSetVolume   = 0x13
	xyWireLoopMode    = 0x18
	xyWireSetEq       = 0x1A

	xyDriveSD          = 0x01
	xyLoopSingleCycle  = 0x01
	xyLoopSingleStop   = 0x02
	xyMaxEqualizerCode = 0x04
)

// XY drives XY-V17B modules over the checksummed AA..SUM protocol.
type XY struct {
	player.Gaps
	w      io.Writer
	logger *slog.Logger
}

func NewXY(w io.Writer, logger *slog.Logger) *XY {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &XY{
		Gaps:   player.Gaps{Normal: 60 * time.Millisecond, AfterPlay: 200 * time.Millisecond},
		w:      w,
		logger: logger.With("backend", "XY Player"),
	}
}

func (x *XY) Name() string { return "XY Player" }

// Begin forces the SD card as the current drive.
func (x *XY) Begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	x.logger.Debug("switch drive to SD")
	if err := writeFrame(x.w, encodeChecksumFrame(xyWireSelectDrive, xyDriveSD)); err != nil {
		return fmt.Errorf("select SD drive: %w", err)
	}
	return nil
}

func (x *XY) Translate(in player.Intent) (player.Command, bool) {
	switch in.Kind {
	case player.IntentPlay:
		return player.Command{Op: xyPlayTrack, A: in.Value}, true
	case player.IntentStop:
		return player.Command{Op: xyStop}, true
	case player.IntentVolume:
		return player.Command{Op: xyVolume, A: in.Value}, true
	case player.IntentLoop:
		if in.Value != 0 {
			return player.Command{Op: xyLoopOn}, true
		}
		return player.Command{Op: xyLoopOff}, true
	case player.IntentEqualizer:
		code := uint16(in.Preset)
		if code > xyMaxEqualizerCode {
			// no BASS curve on XY
			code = uint16(player.EqNormal)
		}
		return player.Command{Op: xyEq, A: code}, true
	}
	return player.Command{}, false
}

func (x *XY) SendCommand(cmd player.Command) error {
	var frame []byte
	switch cmd.Op {
	case xyPlayTrack:
		frame = encodeChecksumFrame(xyWireSpecifySong, byte(cmd.A>>8), byte(cmd.A))
	case xyStop:
		frame = encodeChecksumFrame(xyWireStop)
	case xyVolume:
		frame = encodeChecksumFrame(xyWireSetVolume, byte(min(cmd.A, player.MaxVolume)))
	case xyLoopOn:
		frame = encodeChecksumFrame(xyWireLoopMode, xyLoopSingleCycle)
	case xyLoopOff:
		frame = encodeChecksumFrame(xyWireLoopMode, xyLoopSingleStop)
	case xyEq:
		code := cmd.A
		if code > xyMaxEqualizerCode {
			code = 0
		}
		frame = encodeChecksumFrame(xyWireSetEq, byte(code))
	default:
		x.logger.Warn("unknown command", "op", cmd.Op)
		return unknownOpcode(cmd.Op)
	}
	x.logger.Debug("wire", "cmd", x.CmdName(cmd.Op), "frame", fmt.Sprintf("% X", frame))
	return writeFrame(x.w, frame)
}

func (x *XY) IsPlayCommand(op player.Opcode) bool { return op == xyPlayTrack }

func (x *XY) CmdName(op player.Opcode) string {
	switch op {
	case xyPlayTrack:
		return "PlayTrack"
	case xyStop:
		return "Stop"
	case xyLoopOn:
		return "LoopOn"
	case xyLoopOff:
		return "LoopOff"
	case xyVolume:
		return "Volume"
	case xyEq:
		return "Eq"
	}
	return "?"
}
