package backend

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"serialplayer/player"
)

// DYStorage selects the medium a DY module plays from.
type DYStorage uint8

const (
	DYStorageUSB   DYStorage = 0x00
	DYStorageSD    DYStorage = 0x01
	DYStorageFlash DYStorage = 0x02
)

// DYPlayMode is the module-side repeat mode.
type DYPlayMode uint8

const (
	DYRepeat    DYPlayMode = 0x00
	DYRepeatOne DYPlayMode = 0x01
	DYOneOff    DYPlayMode = 0x02
)

// DYDevice is the vendor-level API of a DY-SVxx module. The DY backend maps
// each opcode onto exactly one call.
type DYDevice interface {
	SetPlayingDevice(s DYStorage) error
	PlaySpecifiedDevicePath(s DYStorage, path string) error
	Stop() error
	SetCycleMode(m DYPlayMode) error
	SetVolume(v uint8) error
	SetEq(eq uint8) error
}

const (
	dyPlayTrack player.Opcode = iota + 1
	dyStop
	dySetCycle
	dyVolume
	dyEq
)

const dyMaxEqualizer = player.EqClassic

// DY drives DY-SVxx modules through a DYDevice.
type DY struct {
	player.Gaps
	dev    DYDevice
	logger *slog.Logger
}

func NewDY(dev DYDevice, logger *slog.Logger) *DY {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DY{
		Gaps:   player.Gaps{Normal: 80 * time.Millisecond, AfterPlay: 180 * time.Millisecond},
		dev:    dev,
		logger: logger.With("backend", "DY Player"),
	}
}

func (d *DY) Name() string { return "DY Player" }

// Begin selects the SD card, single-play mode and the flat EQ.
func (d *DY) Begin(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"set playing device", func() error { return d.dev.SetPlayingDevice(DYStorageSD) }},
		{"set cycle mode", func() error { return d.dev.SetCycleMode(DYOneOff) }},
		{"set eq", func() error { return d.dev.SetEq(uint8(player.EqNormal)) }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (d *DY) Translate(in player.Intent) (player.Command, bool) {
	switch in.Kind {
	case player.IntentPlay:
		return player.Command{Op: dyPlayTrack, A: in.Value}, true
	case player.IntentStop:
		return player.Command{Op: dyStop}, true
	case player.IntentVolume:
		return player.Command{Op: dyVolume, A: in.Value}, true
	case player.IntentLoop:
		return player.Command{Op: dySetCycle, A: in.Value}, true
	case player.IntentEqualizer:
		eq := in.Preset
		if eq > dyMaxEqualizer {
			eq = player.EqNormal
		}
		return player.Command{Op: dyEq, A: uint16(eq)}, true
	}
	return player.Command{}, false
}

func (d *DY) SendCommand(cmd player.Command) error {
	d.logger.Debug("vendor call", "cmd", d.CmdName(cmd.Op), "a", cmd.A)
	switch cmd.Op {
	case dyPlayTrack:
		return d.dev.PlaySpecifiedDevicePath(DYStorageSD, player.TrackPath(cmd.A))
	case dyStop:
		return d.dev.Stop()
	case dySetCycle:
		mode := DYOneOff
		if cmd.A != 0 {
			mode = DYRepeatOne
		}
		return d.dev.SetCycleMode(mode)
	case dyVolume:
		return d.dev.SetVolume(uint8(min(cmd.A, player.MaxVolume)))
	case dyEq:
		return d.dev.SetEq(uint8(cmd.A))
	}
	d.logger.Warn("unknown command", "op", cmd.Op)
	return unknownOpcode(cmd.Op)
}

func (d *DY) IsPlayCommand(op player.Opcode) bool { return op == dyPlayTrack }

func (d *DY) CmdName(op player.Opcode) string {
	switch op {
	case dyPlayTrack:
		return "PlayTrack"
	case dyStop:
		return "Stop"
	case dySetCycle:
		return "SetCycle"
	case dyVolume:
		return "Volume"
	case dyEq:
		return "Eq"
	}
	return "?"
}

// ============================================================================
// DYSerial - DYDevice over a UART
// ============================================================================

// DY-SVxx wire commands (AA..SUM framing)
const (
	dyWireStop             = 0x04
	dyWirePlayDevicePath   = 0x08
	dyWireSetPlayingDevice = 0x0B
	dyWireSetVolume        = 0x13
	dyWireSetCycleMode     = 0x18
	dyWireSetEq            = 0x1A
)

// DYSerial implements DYDevice by writing checksummed frames to w.
type DYSerial struct {
	w io.Writer
}

func NewDYSerial(w io.Writer) *DYSerial { return &DYSerial{w: w} }

func (s *DYSerial) SetPlayingDevice(d DYStorage) error {
	return writeFrame(s.w, encodeChecksumFrame(dyWireSetPlayingDevice, byte(d)))
}

// PlaySpecifiedDevicePath plays a file by path. The module expects upper
// case names with the extension dot written as '*': "/00001*MP3".
func (s *DYSerial) PlaySpecifiedDevicePath(d DYStorage, path string) error {
	data := append([]byte{byte(d)}, dyPath(path)...)
	return writeFrame(s.w, encodeChecksumFrame(dyWirePlayDevicePath, data...))
}

func (s *DYSerial) Stop() error {
	return writeFrame(s.w, encodeChecksumFrame(dyWireStop))
}

func (s *DYSerial) SetCycleMode(m DYPlayMode) error {
	return writeFrame(s.w, encodeChecksumFrame(dyWireSetCycleMode, byte(m)))
}

func (s *DYSerial) SetVolume(v uint8) error {
	return writeFrame(s.w, encodeChecksumFrame(dyWireSetVolume, v))
}

func (s *DYSerial) SetEq(eq uint8) error {
	return writeFrame(s.w, encodeChecksumFrame(dyWireSetEq, eq))
}

func dyPath(p string) string {
	return strings.ReplaceAll(strings.ToUpper(p), ".", "*")
}
