package backend

import (
	"errors"
	"fmt"
	"io"

	"serialplayer/player"
)

// ErrUnknownOpcode is returned by SendCommand for opcodes the backend does
// not define. Nothing is written to the device in that case.
var ErrUnknownOpcode = errors.New("unknown opcode")

func unknownOpcode(op player.Opcode) error {
	return fmt.Errorf("%w: %d", ErrUnknownOpcode, op)
}

// ============================================================================
// Fixed 8-byte frame
// ============================================================================
//
//	7E FF 06 CMD 00 HI LO EF
//
// Start byte, version, length (6 bytes between start and end), command, no
// feedback, 16-bit parameter big-endian, end byte. Used by DFPlayer Mini
// compatible modules, which accept the frame without a checksum.
// ============================================================================

const (
	fixedStart   = 0x7E
	fixedVersion = 0xFF
	fixedLength  = 0x06
	fixedNoAck   = 0x00
	fixedEnd     = 0xEF
)

func encodeFixedFrame(cmd byte, param uint16) []byte {
	return []byte{fixedStart, fixedVersion, fixedLength, cmd, fixedNoAck, byte(param >> 8), byte(param), fixedEnd}
}

// ============================================================================
// Checksummed variable-length frame
// ============================================================================
//
//	AA CMD LEN DATA... SUM
//
// SUM is the low byte of the sum of every preceding byte. Used by the
// XY-V17B and DY-SVxx module families.
// ============================================================================

const checksumStart = 0xAA

func encodeChecksumFrame(cmd byte, data ...byte) []byte {
	if len(data) > 0xFF {
		data = data[:0xFF]
	}
	buf := make([]byte, 0, 4+len(data))
	buf = append(buf, checksumStart, cmd, byte(len(data)))
	buf = append(buf, data...)

	var sum byte
	for _, b := range buf {
		sum += b
	}
	return append(buf, sum)
}

func writeFrame(w io.Writer, frame []byte) error {
	if w == nil {
		return errors.New("no serial port")
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame % X: %w", frame, err)
	}
	return nil
}
