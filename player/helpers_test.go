package player

import (
	"context"
	"errors"
	"testing"
	"time"
)

type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time          { return c.t }
func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

const (
	opPlay Opcode = iota + 1
	opStop
	opVolume
	opLoop
	opEq
)

const (
	testNormalGap    = 50 * time.Millisecond
	testAfterPlayGap = 200 * time.Millisecond
)

// recordingBackend is a test double that records every dispatched command.
type recordingBackend struct {
	Gaps
	clock *manualClock

	sent   []Command
	sentAt []time.Time

	beginErrs  []error
	beginCalls int
	sendErr    error
}

func newRecordingBackend(clock *manualClock) *recordingBackend {
	return &recordingBackend{
		Gaps:  Gaps{Normal: testNormalGap, AfterPlay: testAfterPlayGap},
		clock: clock,
	}
}

func (b *recordingBackend) Name() string { return "Test Player" }

func (b *recordingBackend) Begin(ctx context.Context) error {
	b.beginCalls++
	if len(b.beginErrs) == 0 {
		return nil
	}
	err := b.beginErrs[0]
	b.beginErrs = b.beginErrs[1:]
	return err
}

func (b *recordingBackend) Translate(in Intent) (Command, bool) {
	switch in.Kind {
	case IntentPlay:
		return Command{Op: opPlay, A: in.Value}, true
	case IntentStop:
		return Command{Op: opStop}, true
	case IntentVolume:
		return Command{Op: opVolume, A: in.Value}, true
	case IntentLoop:
		return Command{Op: opLoop, A: in.Value}, true
	case IntentEqualizer:
		return Command{Op: opEq, A: uint16(in.Preset)}, true
	}
	return Command{}, false
}

func (b *recordingBackend) SendCommand(cmd Command) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, cmd)
	b.sentAt = append(b.sentAt, b.clock.Now())
	return nil
}

func (b *recordingBackend) IsPlayCommand(op Opcode) bool { return op == opPlay }

func (b *recordingBackend) CmdName(op Opcode) string {
	switch op {
	case opPlay:
		return "Play"
	case opStop:
		return "Stop"
	case opVolume:
		return "Volume"
	case opLoop:
		return "Loop"
	case opEq:
		return "Eq"
	}
	return "Unknown"
}

func (b *recordingBackend) ops() []Opcode {
	out := make([]Opcode, len(b.sent))
	for i, c := range b.sent {
		out[i] = c.Op
	}
	return out
}

func (b *recordingBackend) countOp(op Opcode) int {
	n := 0
	for _, c := range b.sent {
		if c.Op == op {
			n++
		}
	}
	return n
}

// streamingBackend adds end-of-stream reporting and in-place restart.
type streamingBackend struct {
	*recordingBackend
	ended      bool
	restarts   int
	restartErr error
}

func (b *streamingBackend) Poll(now time.Time) bool {
	ended := b.ended
	b.ended = false
	return ended
}

func (b *streamingBackend) Restart() error {
	b.restarts++
	return b.restartErr
}

var errBoom = errors.New("boom")

func newTestController(t *testing.T) (*Controller, *recordingBackend, *manualClock) {
	t.Helper()
	clock := newManualClock()
	b := newRecordingBackend(clock)
	c := New(b, Config{Clock: clock, InitBackoff: time.Nanosecond}, nil)
	return c, b, clock
}

// run advances the clock in fixed steps, calling Update after each step.
func run(c *Controller, clock *manualClock, total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		clock.advance(step)
		c.Update()
	}
}
