package player

import (
	"time"

	"github.com/samber/lo"
)

// FadeDirection is the state of the fade engine.
type FadeDirection uint8

const (
	FadeNone FadeDirection = iota
	FadeIn
	FadeOut
)

func (d FadeDirection) String() string {
	switch d {
	case FadeIn:
		return "in"
	case FadeOut:
		return "out"
	default:
		return "none"
	}
}

type fadeOutcome uint8

const (
	fadeStarted fadeOutcome = iota
	fadeBusy
	fadeAtTarget
)

// fadeState is a time-stepped volume ramp. It never touches the hardware:
// tick reports the next volume and the controller turns it into a queued
// volume command.
//
// Invariant: direction == FadeNone whenever no ramp is running, and target
// is only meaningful while a ramp is running.
type fadeState struct {
	direction FadeDirection
	target    int
	interval  time.Duration
	startedAt time.Time
	lastStep  time.Time
	stopAfter bool
}

type fadeTick struct {
	volume  int
	changed bool
	done    bool
	stop    bool
}

func (f *fadeState) active() bool { return f.direction != FadeNone }

// fadeInterval spreads duration evenly over diff unit steps, truncated to
// whole milliseconds and bounded to [10ms, 500ms]. diff must be > 0.
func fadeInterval(duration time.Duration, diff int) time.Duration {
	per := (duration / time.Duration(diff)).Truncate(time.Millisecond)
	return lo.Clamp(per, minFadeInterval, maxFadeInterval)
}

// start begins a ramp from current to target. dir == FadeNone derives the
// direction from the sign of the difference (fadeTo).
func (f *fadeState) start(dir FadeDirection, duration time.Duration, current, target int, stopAfter bool, now time.Time) fadeOutcome {
	if f.active() {
		return fadeBusy
	}

	current = clampVolume(current)
	target = clampVolume(target)
	duration = max(duration, MinFadeDuration)

	if dir == FadeNone {
		switch {
		case current < target:
			dir = FadeIn
		case current > target:
			dir = FadeOut
		default:
			return fadeAtTarget
		}
	}

	diff := target - current
	if dir == FadeOut {
		diff = -diff
	}
	if diff <= 0 {
		return fadeAtTarget
	}

	*f = fadeState{
		direction: dir,
		target:    target,
		interval:  fadeInterval(duration, diff),
		startedAt: now,
		lastStep:  now,
		stopAfter: stopAfter && dir == FadeOut,
	}
	return fadeStarted
}

// tick advances the ramp by at most one step.
func (f *fadeState) tick(now time.Time, current int) fadeTick {
	if !f.active() || now.Sub(f.lastStep) < f.interval {
		return fadeTick{volume: current}
	}
	f.lastStep = now

	next := current
	switch f.direction {
	case FadeIn:
		next = min(current+fadeStep, f.target)
	case FadeOut:
		next = max(current-fadeStep, f.target)
	}
	next = clampVolume(next)

	t := fadeTick{volume: next, changed: next != current}
	if next == f.target {
		t.done = true
		t.stop = f.stopAfter
		*f = fadeState{}
	}
	return t
}

// rearm restarts the step timer so the first step comes one interval after
// now.
func (f *fadeState) rearm(now time.Time) {
	f.startedAt = now
	f.lastStep = now
}

// cancel drops the ramp without completing it and reports whether the caller
// should stop playback.
func (f *fadeState) cancel(stopIfFadingOut bool) (stop bool) {
	stop = stopIfFadingOut && f.direction == FadeOut
	*f = fadeState{}
	return stop
}
