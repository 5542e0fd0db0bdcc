package player

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestQueue_LastWriteWins(t *testing.T) {
	c, b, clock := newTestController(t)

	c.SetVolume(5)
	c.Play(3, 0, "a")

	if len(b.sent) != 0 {
		t.Fatalf("intents must not dispatch before Update, sent %v", b.ops())
	}

	c.Update()
	if len(b.sent) != 1 {
		t.Fatalf("dispatched %d commands, want 1", len(b.sent))
	}
	if b.sent[0].Op != opPlay || b.sent[0].A != 3 {
		t.Fatalf("dispatched %+v, want play 3", b.sent[0])
	}

	run(c, clock, time.Second, 10*time.Millisecond)
	if len(b.sent) != 1 {
		t.Fatalf("overwritten command was dispatched later: %v", b.ops())
	}
}

func TestQueue_EmptySlotIsNoop(t *testing.T) {
	c, b, clock := newTestController(t)
	run(c, clock, time.Second, 10*time.Millisecond)
	if len(b.sent) != 0 {
		t.Fatalf("sent %v with nothing queued", b.ops())
	}
}

func TestQueue_AfterPlayGap(t *testing.T) {
	c, b, clock := newTestController(t)

	c.Play(1, 0, "a")
	c.Update()
	start := clock.Now()

	c.SetVolume(10)
	clock.advance(testAfterPlayGap - time.Millisecond)
	c.Update()
	if len(b.sent) != 1 {
		t.Fatalf("command dispatched inside the after-play gap")
	}

	clock.advance(time.Millisecond)
	c.Update()
	if len(b.sent) != 2 || b.sent[1].Op != opVolume {
		t.Fatalf("volume not dispatched at gap end: %v", b.ops())
	}
	if got := b.sentAt[1].Sub(start); got != testAfterPlayGap {
		t.Fatalf("second dispatch after %v, want %v", got, testAfterPlayGap)
	}
}

func TestQueue_NormalGap(t *testing.T) {
	c, b, clock := newTestController(t)

	c.SetVolume(10)
	c.Update()
	c.SetVolume(11)
	clock.advance(testNormalGap - time.Millisecond)
	c.Update()
	if len(b.sent) != 1 {
		t.Fatalf("command dispatched inside the normal gap")
	}
	clock.advance(time.Millisecond)
	c.Update()
	if len(b.sent) != 2 || b.sent[1].A != 11 {
		t.Fatalf("sent %+v, want volume 11 second", b.sent)
	}
}

func TestQueue_DispatchTimesRespectGaps(t *testing.T) {
	c, b, clock := newTestController(t)

	for i := 0; i < 100; i++ {
		switch i % 3 {
		case 0:
			c.Play(i+1, 0, "t")
		case 1:
			c.SetVolume(i % 30)
		case 2:
			c.Stop()
		}
		clock.advance(7 * time.Millisecond)
		c.Update()
	}

	for i := 1; i < len(b.sent); i++ {
		gap := testNormalGap
		if b.sent[i-1].Op == opPlay {
			gap = testAfterPlayGap
		}
		if d := b.sentAt[i].Sub(b.sentAt[i-1]); d < gap {
			t.Fatalf("dispatch %d only %v after previous %s, want >= %v", i, d, b.CmdName(b.sent[i-1].Op), gap)
		}
	}
}

func TestSetVolume_ClampedAndDeduplicated(t *testing.T) {
	c, b, clock := newTestController(t)

	c.SetVolume(99)
	if c.Volume() != MaxVolume {
		t.Fatalf("volume = %d, want %d", c.Volume(), MaxVolume)
	}
	c.SetVolume(-4)
	if c.Volume() != MinVolume {
		t.Fatalf("volume = %d, want %d", c.Volume(), MinVolume)
	}

	c.SetVolume(10)
	c.Update()
	clock.advance(time.Second)
	c.SetVolume(10)
	c.Update()
	if n := b.countOp(opVolume); n != 1 {
		t.Fatalf("volume dispatched %d times, want 1", n)
	}

	// A pending different value must be overridable back to the written one.
	clock.advance(time.Second)
	c.SetVolume(12)
	c.SetVolume(10)
	c.Update()
	if n := b.countOp(opVolume); n != 2 || b.sent[len(b.sent)-1].A != 10 {
		t.Fatalf("sent %+v, want a second volume 10", b.sent)
	}
}

func TestSetVolume_FailedWriteIsRetried(t *testing.T) {
	c, b, clock := newTestController(t)

	b.sendErr = errBoom
	c.SetVolume(8)
	c.Update()

	b.sendErr = nil
	clock.advance(time.Second)
	c.SetVolume(8)
	c.Update()
	if b.countOp(opVolume) != 1 {
		t.Fatalf("volume not re-sent after failed write: %v", b.ops())
	}
}

func TestStepVolume(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetVolume(29)
	c.StepVolume(3)
	if c.Volume() != MaxVolume {
		t.Fatalf("volume = %d, want %d", c.Volume(), MaxVolume)
	}
	c.StepVolume(-5)
	if c.Volume() != 25 {
		t.Fatalf("volume = %d, want 25", c.Volume())
	}
}

func TestPlay_TrackClamped(t *testing.T) {
	c, b, _ := newTestController(t)
	c.Play(0, 0, "x")
	if c.Track() != 1 {
		t.Fatalf("track = %d, want 1", c.Track())
	}
	c.Update()
	if b.sent[0].A != 1 {
		t.Fatalf("dispatched track %d, want 1", b.sent[0].A)
	}
}

func TestSetEqualizerPreset_FallsBackToNormal(t *testing.T) {
	c, b, _ := newTestController(t)

	c.SetEqualizerPreset(EqualizerPreset(9))
	if c.Equalizer() != EqNormal {
		t.Fatalf("preset = %v, want NORMAL", c.Equalizer())
	}
	c.Update()
	if len(b.sent) != 1 || b.sent[0].Op != opEq || b.sent[0].A != uint16(EqNormal) {
		t.Fatalf("sent %+v", b.sent)
	}
}

func TestBegin_RetriesThenSucceeds(t *testing.T) {
	c, b, _ := newTestController(t)
	b.beginErrs = []error{errBoom, nil}

	if err := c.Begin(context.Background()); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if b.beginCalls != 2 {
		t.Fatalf("begin called %d times, want 2", b.beginCalls)
	}
	if c.Degraded() {
		t.Fatalf("controller degraded after successful begin")
	}

	c.Update()
	if len(b.sent) != 1 || b.sent[0].Op != opVolume || b.sent[0].A != DefaultVolume {
		t.Fatalf("sent %+v, want initial volume %d", b.sent, DefaultVolume)
	}
}

func TestBegin_GivesUpAndDegrades(t *testing.T) {
	c, b, _ := newTestController(t)
	b.beginErrs = []error{errBoom, errBoom, errBoom}

	err := c.Begin(context.Background())
	if !errors.Is(err, ErrNotReady) || !errors.Is(err, errBoom) {
		t.Fatalf("Begin error = %v, want ErrNotReady wrapping boom", err)
	}
	if b.beginCalls != defaultInitAttempts {
		t.Fatalf("begin called %d times, want %d", b.beginCalls, defaultInitAttempts)
	}

	// Still callable, but nothing reaches the hardware.
	c.Play(4, 0, "x")
	c.Update()
	if !c.IsPlaying() {
		t.Fatalf("status not tracked while degraded")
	}
	if len(b.sent) != 0 {
		t.Fatalf("degraded controller wrote %v", b.ops())
	}
}

func TestBegin_StopsOnContextCancel(t *testing.T) {
	c, b, _ := newTestController(t)
	b.beginErrs = []error{errBoom, errBoom, errBoom}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Begin(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Begin error = %v, want context.Canceled", err)
	}
	if b.beginCalls != 1 {
		t.Fatalf("begin called %d times, want 1", b.beginCalls)
	}
}

func TestLoop_SoftwareRestartOnStreamEnd(t *testing.T) {
	clock := newManualClock()
	sb := &streamingBackend{recordingBackend: newRecordingBackend(clock)}
	c := New(sb, Config{Clock: clock}, nil)

	c.EnableLoop()
	c.Update()
	clock.advance(time.Second)
	c.Play(2, 0, "loop")
	c.Update()

	clock.advance(time.Second)
	sb.ended = true
	c.Update()
	if sb.restarts != 1 || !c.IsPlaying() {
		t.Fatalf("restarts=%d playing=%v, want 1 and playing", sb.restarts, c.IsPlaying())
	}

	c.DisableLoop()
	clock.advance(time.Second)
	c.Update()
	clock.advance(time.Second)
	sb.ended = true
	c.Update()
	if c.IsPlaying() {
		t.Fatalf("track should stop at end of stream without loop")
	}
	if sb.restarts != 1 {
		t.Fatalf("restarted without loop")
	}
}

func TestLoop_ReplayWhenRestartFails(t *testing.T) {
	clock := newManualClock()
	sb := &streamingBackend{recordingBackend: newRecordingBackend(clock), restartErr: errBoom}
	c := New(sb, Config{Clock: clock}, nil)

	c.EnableLoop()
	c.Update()
	clock.advance(time.Second)
	c.Play(2, 0, "loop")
	c.Update()

	clock.advance(time.Second)
	sb.ended = true
	c.Update()
	if n := sb.countOp(opPlay); n != 2 {
		t.Fatalf("play dispatched %d times, want 2", n)
	}
	if !c.IsPlaying() || c.Track() != 2 {
		t.Fatalf("playing=%v track=%d", c.IsPlaying(), c.Track())
	}
}

func TestSnapshot(t *testing.T) {
	c, _, clock := newTestController(t)

	c.Play(7, 10*time.Second, "intro")
	clock.advance(4 * time.Second)

	s := c.Snapshot()
	if s.Player != "Test Player" || s.Status != Playing || s.Track != 7 || s.TrackName != "intro" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if s.ElapsedMS != 4000 || s.RemainingMS != 6000 || s.DurationMS != 10000 {
		t.Fatalf("timing elapsed=%d remaining=%d duration=%d", s.ElapsedMS, s.RemainingMS, s.DurationMS)
	}
	if s.Pending != "Play" {
		t.Fatalf("pending = %q, want Play", s.Pending)
	}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"status":"playing"`) || !strings.Contains(string(b), `"equalizer":"NORMAL"`) {
		t.Fatalf("unexpected json %s", b)
	}

	var back Snapshot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Status != Playing || back.Fade != FadeNone {
		t.Fatalf("decoded %+v", back)
	}
}
