package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotReady is wrapped by Begin when the device could not be initialized.
var ErrNotReady = errors.New("player not ready")

// Config holds the tunables of a Controller. The zero value is usable.
type Config struct {
	// Clock defaults to SystemClock.
	Clock Clock

	// InitialVolume is queued after a successful Begin. Values <= 0 select
	// DefaultVolume.
	InitialVolume int

	// InitAttempts bounds the number of Begin attempts (default 3) and
	// InitBackoff is the fixed pause between them (default 500ms).
	InitAttempts int
	InitBackoff  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.InitialVolume <= 0 {
		c.InitialVolume = DefaultVolume
	}
	c.InitialVolume = clampVolume(c.InitialVolume)
	if c.InitAttempts <= 0 {
		c.InitAttempts = defaultInitAttempts
	}
	if c.InitBackoff <= 0 {
		c.InitBackoff = defaultInitBackoff
	}
	return c
}

// Controller drives one audio module. It is not safe for concurrent use: a
// single goroutine issues intents and calls Update on a fixed cadence.
//
// Intents (Play, Stop, SetVolume, ...) only update the controller's model and
// queue a command; nothing reaches the hardware until Update flushes the
// pacing queue.
type Controller struct {
	backend Backend
	cfg     Config
	clock   Clock
	logger  *slog.Logger

	degraded bool

	volume        int
	volumeWritten int // -1 until the first volume command is dispatched
	eq            EqualizerPreset
	looping       bool

	playback playback
	edge     statusEdge
	fade     fadeState
	queue    pacer

	// FadeIn is sequenced: volume 0 goes out first, then the held track,
	// and only then does the ramp start.
	fadeInStage fadeInStage
	heldTrack   uint16

	lastSent   Command
	lastSentAt time.Time

	observers []func(StatusChange)
}

// New returns a controller for b. A nil logger discards diagnostics.
func New(b Backend, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &Controller{
		backend:       b,
		cfg:           cfg,
		clock:         cfg.Clock,
		logger:        logger.With("player", b.Name()),
		volume:        cfg.InitialVolume,
		volumeWritten: -1,
	}
}

// Backend returns the adapter the controller dispatches to.
func (c *Controller) Backend() Backend { return c.backend }

// OnStatusChange registers fn to be called from Update after every
// Stopped <-> Playing transition.
func (c *Controller) OnStatusChange(fn func(StatusChange)) {
	c.observers = append(c.observers, fn)
}

// Begin initializes the device with bounded retries. On failure the
// controller stays usable but drops commands instead of writing them.
func (c *Controller) Begin(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.InitAttempts; attempt++ {
		err := c.backend.Begin(ctx)
		if err == nil {
			c.degraded = false
			c.logger.Info("player initialized", "attempt", attempt)
			c.SetVolume(c.cfg.InitialVolume)
			return nil
		}
		lastErr = err
		c.logger.Warn("player init failed; retrying...", "error", err, "attempt", attempt)

		if attempt == c.cfg.InitAttempts {
			break
		}
		if ctx.Err() != nil {
			c.degraded = true
			return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
		}
		select {
		case <-ctx.Done():
			c.degraded = true
			return fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
		case <-time.After(c.cfg.InitBackoff):
		}
	}

	c.degraded = true
	c.logger.Error("player init gave up; continuing without hardware", "attempts", c.cfg.InitAttempts, "error", lastErr)
	return fmt.Errorf("%w after %d attempts: %w", ErrNotReady, c.cfg.InitAttempts, lastErr)
}

// ============================================================================
// Intents
// ============================================================================

// fadeInStage tracks a FadeIn that is not ramping yet.
type fadeInStage uint8

const (
	fadeInIdle      fadeInStage = iota
	fadeInSilencing             // volume 0 queued, track held back
	fadeInStarting              // track queued, ramp held back
)

// Play starts track (1..65535). duration <= 0 plays until stopped. A running
// fade is canceled.
func (c *Controller) Play(track int, duration time.Duration, name string) {
	c.dropFade("play")
	t := c.startPlayback(track, duration, name)
	c.submit(Intent{Kind: IntentPlay, Value: t})
}

func (c *Controller) startPlayback(track int, duration time.Duration, name string) uint16 {
	t := clampTrack(track)
	if int(t) != track {
		c.logger.Warn("track out of range; clamped", "requested", track, "track", t)
	}
	if name == "" {
		c.logger.Warn("track name is empty", "track", t)
	}
	if duration <= 0 {
		c.logger.Warn("no play duration; playing until stopped", "track", t, "duration", duration)
	}

	c.playback.play(t, duration, name, c.clock.Now())
	c.logger.Debug("play", "track", t, "name", name, "duration", duration)
	return t
}

// Stop marks playback stopped and queues a stop command. A running fade is
// canceled.
func (c *Controller) Stop() {
	c.dropFade("stop")
	c.playback.stop()
	c.logger.Debug("stop")
	c.submit(Intent{Kind: IntentStop})
}

// SetVolume clamps v to [MinVolume, MaxVolume]. A value equal to the last
// dispatched one is not queued again.
func (c *Controller) SetVolume(v int) {
	c.setVolume(v, "intent")
}

// StepVolume adjusts the volume by delta units.
func (c *Controller) StepVolume(delta int) {
	c.setVolume(c.volume+delta, "step")
}

func (c *Controller) setVolume(v int, source string) {
	v = clampVolume(v)
	c.volume = v

	pendingVolume := c.queue.hasPending() && c.queue.pending.kind == IntentVolume
	if v == c.volumeWritten && !pendingVolume {
		c.logger.Debug("volume already set", "volume", v, "source", source)
		return
	}
	c.logger.Debug("volume", "volume", v, "source", source)
	c.submit(Intent{Kind: IntentVolume, Value: uint16(v)})
}

// EnableLoop repeats the current track until looping is disabled.
func (c *Controller) EnableLoop() { c.setLoop(true) }

// DisableLoop lets the current track finish.
func (c *Controller) DisableLoop() { c.setLoop(false) }

func (c *Controller) setLoop(on bool) {
	c.looping = on
	var v uint16
	if on {
		v = 1
	}
	c.logger.Debug("loop", "enabled", on)
	c.submit(Intent{Kind: IntentLoop, Value: v})
}

// SetEqualizerPreset selects an EQ curve. Unknown presets fall back to
// EqNormal.
func (c *Controller) SetEqualizerPreset(p EqualizerPreset) {
	if !p.Valid() {
		c.logger.Warn("unknown equalizer preset; using NORMAL", "preset", int(p))
		p = EqNormal
	}
	c.eq = p
	c.logger.Debug("equalizer", "preset", p)
	c.submit(Intent{Kind: IntentEqualizer, Preset: p})
}

// FadeIn drops the volume to 0, starts track and ramps up to target over
// duration. The track is queued only after the volume 0 write went out, and
// the ramp starts once the track did. The new track replaces whatever was
// playing. It is rejected while another fade runs.
func (c *Controller) FadeIn(duration time.Duration, target, track int, trackDuration time.Duration, name string) bool {
	if c.fade.active() || c.fadeInStage != fadeInIdle {
		c.logger.Warn("fade already in progress; ignoring fade in", "direction", c.fade.direction)
		return false
	}
	c.SetVolume(MinVolume)
	c.heldTrack = c.startPlayback(track, trackDuration, name)
	c.fadeInStage = fadeInSilencing
	return c.startFade(FadeIn, duration, target, false)
}

// advanceFadeIn moves a pending FadeIn forward once the slot has drained.
func (c *Controller) advanceFadeIn(now time.Time) {
	if c.queue.hasPending() {
		return
	}
	switch c.fadeInStage {
	case fadeInSilencing:
		c.logger.Debug("fade in: volume silenced, starting track", "track", c.heldTrack)
		c.fadeInStage = fadeInStarting
		c.submit(Intent{Kind: IntentPlay, Value: c.heldTrack})
	case fadeInStarting:
		c.fadeInStage = fadeInIdle
		c.heldTrack = 0
		if c.fade.active() {
			c.fade.rearm(now)
		}
	}
}

// dropFade abandons a running or pending fade without stopping playback.
func (c *Controller) dropFade(reason string) {
	if c.fade.active() {
		c.logger.Debug("fade canceled", "by", reason, "direction", c.fade.direction, "volume", c.volume)
		c.fade.cancel(false)
	}
	c.fadeInStage = fadeInIdle
	c.heldTrack = 0
}

// rampBlocked reports whether a fade step has to wait: a staged FadeIn has
// not reached the ramp yet, or a non-volume command is waiting in the slot
// and a volume step would replace it.
func (c *Controller) rampBlocked() bool {
	if c.fadeInStage != fadeInIdle {
		return true
	}
	return c.queue.hasPending() && c.queue.pending.kind != IntentVolume
}

// FadeOut ramps the volume down to target. With stopSound the track is
// stopped once target is reached. A target at or above the current volume
// is a no-op.
func (c *Controller) FadeOut(duration time.Duration, target int, stopSound bool) bool {
	return c.startFade(FadeOut, duration, target, stopSound)
}

// FadeTo ramps toward target in whichever direction is needed.
func (c *Controller) FadeTo(duration time.Duration, target int) bool {
	return c.startFade(FadeNone, duration, target, false)
}

// CancelFade abandons a running fade where it is. With stopIfFadingOut a
// fade-out also stops playback.
func (c *Controller) CancelFade(stopIfFadingOut bool) {
	if !c.fade.active() {
		return
	}
	c.logger.Debug("fade canceled", "direction", c.fade.direction, "volume", c.volume)
	if c.fade.cancel(stopIfFadingOut) {
		c.Stop()
	}
}

func (c *Controller) startFade(dir FadeDirection, duration time.Duration, target int, stopAfter bool) bool {
	switch c.fade.start(dir, duration, c.volume, target, stopAfter, c.clock.Now()) {
	case fadeBusy:
		c.logger.Warn("fade already in progress; ignoring request", "direction", c.fade.direction)
		return false
	case fadeAtTarget:
		c.logger.Debug("no fade needed", "volume", c.volume, "target", target, "direction", dir)
		return false
	}
	c.logger.Debug("fade started",
		"direction", c.fade.direction,
		"from", c.volume,
		"target", c.fade.target,
		"interval", c.fade.interval,
		"stop_after", c.fade.stopAfter)
	return true
}

func (c *Controller) submit(in Intent) {
	cmd, ok := c.backend.Translate(in)
	if !ok || cmd.IsEmpty() {
		c.logger.Debug("intent not supported by backend", "intent", in.Kind)
		return
	}
	cmd.kind = in.Kind
	cmd.value = in.Value
	if old := c.queue.enqueue(cmd); !old.IsEmpty() {
		c.logger.Debug("queued command replaced",
			"dropped", c.backend.CmdName(old.Op),
			"cmd", c.backend.CmdName(cmd.Op))
	}
}

// ============================================================================
// Update
// ============================================================================

// Update advances the controller by one step. Order matters:
//  1. timed playback expiry
//  2. end-of-stream from backends that can observe it
//  3. one fade step, unless it would replace a queued non-volume command
//  4. at most one paced command dispatch
//  5. the next stage of a pending FadeIn
//  6. status change notification
func (c *Controller) Update() {
	now := c.clock.Now()

	if c.playback.expired(now) {
		c.logger.Debug("play duration elapsed", "track", c.playback.track, "duration", c.playback.duration)
		c.Stop()
	}

	if r, ok := c.backend.(TrackEndReporter); ok && r.Poll(now) && c.playback.status == Playing {
		c.trackEnded()
	}

	if !c.rampBlocked() {
		if t := c.fade.tick(now, c.volume); t.changed || t.done {
			if t.changed {
				c.setVolume(t.volume, "fade")
			}
			if t.done {
				c.logger.Debug("fade complete", "volume", t.volume)
				if t.stop {
					c.Stop()
				}
			}
		}
	}

	if cmd, ok := c.queue.take(now); ok {
		c.dispatch(cmd, now)
	}
	c.advanceFadeIn(now)

	if from, changed := c.edge.observe(c.playback.status); changed {
		ev := StatusChange{From: from, To: c.playback.status, Track: c.playback.track, Name: c.playback.name, At: now}
		c.logger.Info("status changed", "from", ev.From, "to", ev.To, "track", ev.Track)
		for _, fn := range c.observers {
			fn(ev)
		}
	}
}

// trackEnded handles a stream that ran out on its own. Looping restarts it
// in software; otherwise playback is stopped.
func (c *Controller) trackEnded() {
	if !c.looping {
		c.logger.Debug("track finished", "track", c.playback.track)
		c.Stop()
		return
	}
	if r, ok := c.backend.(Restarter); ok {
		err := r.Restart()
		if err == nil {
			c.logger.Debug("track restarted", "track", c.playback.track)
			return
		}
		c.logger.Warn("restart failed; replaying", "track", c.playback.track, "error", err)
	}
	c.submit(Intent{Kind: IntentPlay, Value: c.playback.track})
}

func (c *Controller) dispatch(cmd Command, now time.Time) {
	defer c.queue.dispatched(cmd, c.backend, now)

	name := c.backend.CmdName(cmd.Op)
	if c.degraded {
		c.logger.Debug("player not ready; dropping command", "cmd", name)
		return
	}
	if err := c.backend.SendCommand(cmd); err != nil {
		c.logger.Error("send command failed", "cmd", name, "a", cmd.A, "b", cmd.B, "error", err)
		return
	}
	c.logger.Debug("command sent", "cmd", name, "a", cmd.A, "b", cmd.B)
	c.lastSent, c.lastSentAt = cmd, now
	if cmd.kind == IntentVolume {
		c.volumeWritten = int(cmd.value)
	}
}

// ============================================================================
// Accessors
// ============================================================================

func (c *Controller) Volume() int                { return c.volume }
func (c *Controller) Status() Status             { return c.playback.status }
func (c *Controller) IsPlaying() bool            { return c.playback.status == Playing }
func (c *Controller) Track() uint16              { return c.playback.track }
func (c *Controller) TrackName() string          { return c.playback.name }
func (c *Controller) Looping() bool              { return c.looping }
func (c *Controller) Equalizer() EqualizerPreset { return c.eq }
func (c *Controller) FadeDirection() FadeDirection {
	return c.fade.direction
}
func (c *Controller) IsFading() bool { return c.fade.active() }
func (c *Controller) Degraded() bool { return c.degraded }
