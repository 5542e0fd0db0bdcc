package player

import (
	"context"
	"time"
)

// Opcode is a backend-specific command identifier. Zero is reserved for
// "no command" and marks an empty pacing slot.
type Opcode uint8

// OpNone is the empty opcode shared by every backend.
const OpNone Opcode = 0

// Command is a single hardware request waiting in, or leaving, the pacing
// queue.
type Command struct {
	Op Opcode
	A  uint16
	B  uint16

	// kind and value record the intent that produced the command so the
	// controller can keep its own bookkeeping after dispatch.
	kind  IntentKind
	value uint16
}

// IsEmpty reports whether c carries no opcode.
func (c Command) IsEmpty() bool { return c.Op == OpNone }

// IntentKind is a backend-neutral request type.
type IntentKind uint8

const (
	IntentNone IntentKind = iota
	IntentPlay
	IntentStop
	IntentVolume
	IntentLoop
	IntentEqualizer
)

func (k IntentKind) String() string {
	switch k {
	case IntentPlay:
		return "play"
	case IntentStop:
		return "stop"
	case IntentVolume:
		return "volume"
	case IntentLoop:
		return "loop"
	case IntentEqualizer:
		return "equalizer"
	default:
		return "none"
	}
}

// Intent is what the controller asks a backend to translate into a Command.
//
//	IntentPlay:      Value = track number (1..65535)
//	IntentStop:      no value
//	IntentVolume:    Value = volume (0..30)
//	IntentLoop:      Value = 1 to enable, 0 to disable
//	IntentEqualizer: Preset
type Intent struct {
	Kind   IntentKind
	Value  uint16
	Preset EqualizerPreset
}

// Backend is the capability set a hardware adapter provides to the
// controller. Only the controller calls SendCommand, and only from Update.
type Backend interface {
	// Name is the human readable player type ("XY Player").
	Name() string

	// Begin performs one-time device initialization. It may be called again
	// after a failure.
	Begin(ctx context.Context) error

	// Translate maps a neutral intent to this backend's opcode and
	// parameters. ok is false when the backend has no equivalent command.
	Translate(in Intent) (cmd Command, ok bool)

	// SendCommand writes cmd to the device. Unknown opcodes must not reach
	// the hardware.
	SendCommand(cmd Command) error

	NormalGap() time.Duration
	AfterPlayGap() time.Duration
	IsPlayCommand(op Opcode) bool
	CmdName(op Opcode) string
}

// TrackEndReporter is implemented by backends that can observe the end of
// the current stream. Poll is called once per Update and reports true once
// per finished stream.
type TrackEndReporter interface {
	Poll(now time.Time) (ended bool)
}

// Restarter is implemented by backends that can rewind the current stream
// in place, which is cheaper than re-issuing the play command on loop.
type Restarter interface {
	Restart() error
}

// Gaps bundles the two pacing intervals of a backend. Backends embed it to
// satisfy the NormalGap/AfterPlayGap part of Backend.
type Gaps struct {
	Normal    time.Duration
	AfterPlay time.Duration
}

func (g Gaps) NormalGap() time.Duration    { return g.Normal }
func (g Gaps) AfterPlayGap() time.Duration { return g.AfterPlay }
