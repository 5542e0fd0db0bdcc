package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"serialplayer/internal/ipc"
	"serialplayer/player"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// One goroutine owns the controller. It applies requests from IPC and
// input keys as they arrive and calls Update on a fixed cadence. Nothing
// else touches the controller.
//
// ============================================================================

// call is a request waiting to be applied. reply is nil for fire-and-forget
// sources (input keys).
type call struct {
	req   ipc.Request
	reply chan<- callResult
}

type callResult struct {
	data any
	err  error
}

// fadeResult reports whether a fade request started a fade.
type fadeResult struct {
	Started bool `json:"started"`
}

var errNoTrack = errors.New("no track to replay")

type daemon struct {
	ctrl   *player.Controller
	logger *slog.Logger

	volumeStep   int
	defaultTrack int
	lastTrack    int
	lastName     string
	lastDuration time.Duration
}

func newDaemon(ctrl *player.Controller, in InputConfig, logger *slog.Logger) *daemon {
	return &daemon{
		ctrl:         ctrl,
		logger:       logger,
		volumeStep:   max(in.VolumeStep, 1),
		defaultTrack: in.DefaultTrack,
	}
}

// run is the daemon main loop. It exits when ctx is canceled or calls is
// closed.
func (d *daemon) run(ctx context.Context, calls <-chan call, keys <-chan inputEvent, updateHz int) {
	ticker := time.NewTicker(time.Second / time.Duration(updateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return

		case c, ok := <-calls:
			if !ok {
				d.logger.Info("daemon stopping (calls channel closed)")
				return
			}
			data, err := d.apply(c.req)
			if err != nil {
				d.logger.Warn("request failed", "error", err)
			}
			if c.reply != nil {
				c.reply <- callResult{data: data, err: err}
			}

		case ev := <-keys:
			d.handleKey(ev)

		case <-ticker.C:
			d.ctrl.Update()
		}
	}
}

// apply maps one request onto the controller.
func (d *daemon) apply(req ipc.Request) (any, error) {
	c := d.ctrl
	switch r := req.(type) {
	case ipc.Play:
		return nil, d.play(r.Track, ipc.Millis(r.DurationMs), r.Name)
	case ipc.Stop:
		c.Stop()
	case ipc.SetVolume:
		c.SetVolume(r.Volume)
	case ipc.VolumeStep:
		c.StepVolume(r.Delta)
	case ipc.SetLoop:
		if r.Enabled {
			c.EnableLoop()
		} else {
			c.DisableLoop()
		}
	case ipc.SetEqualizer:
		p, err := player.ParseEqualizerPreset(r.Preset)
		if err != nil {
			return nil, err
		}
		c.SetEqualizerPreset(p)
	case ipc.FadeIn:
		if r.Track < 1 {
			return nil, fmt.Errorf("invalid track %d", r.Track)
		}
		started := c.FadeIn(ipc.Millis(r.DurationMs), r.Target, r.Track, ipc.Millis(r.TrackDurationMs), r.Name)
		if started {
			d.remember(r.Track, r.Name, ipc.Millis(r.TrackDurationMs))
		}
		return fadeResult{Started: started}, nil
	case ipc.FadeOut:
		return fadeResult{Started: c.FadeOut(ipc.Millis(r.DurationMs), r.Target, r.Stop)}, nil
	case ipc.FadeTo:
		return fadeResult{Started: c.FadeTo(ipc.Millis(r.DurationMs), r.Target)}, nil
	case ipc.CancelFade:
		c.CancelFade(r.StopIfFadingOut)
	case ipc.Status:
		return c.Snapshot(), nil
	default:
		return nil, fmt.Errorf("unsupported request %T", req)
	}
	return nil, nil
}

// play starts track. Track 0 replays the last track, or the configured
// default when nothing has been played yet.
func (d *daemon) play(track int, duration time.Duration, name string) error {
	if track == 0 {
		if d.lastTrack == 0 {
			if d.defaultTrack == 0 {
				return errNoTrack
			}
			d.lastTrack = d.defaultTrack
		}
		track, duration, name = d.lastTrack, d.lastDuration, d.lastName
	}
	if track < 0 {
		return fmt.Errorf("invalid track %d", track)
	}
	d.ctrl.Play(track, duration, name)
	d.remember(track, name, duration)
	return nil
}

func (d *daemon) remember(track int, name string, duration time.Duration) {
	d.lastTrack, d.lastName, d.lastDuration = track, name, duration
}

// handleKey translates remote-control keys into controller intents.
func (d *daemon) handleKey(ev inputEvent) {
	if ev.Type != EV_KEY {
		return
	}
	held := ev.Value == evValuePress || ev.Value == evValueRepeat
	pressed := ev.Value == evValuePress

	switch ev.Code {
	case KEY_VOLUMEUP:
		if held {
			d.ctrl.StepVolume(d.volumeStep)
		}
	case KEY_VOLUMEDOWN:
		if held {
			d.ctrl.StepVolume(-d.volumeStep)
		}
	case KEY_MUTE:
		if pressed {
			d.ctrl.SetVolume(player.MinVolume)
		}
	case KEY_STOPCD:
		if pressed {
			d.ctrl.Stop()
		}
	case KEY_PLAYCD:
		if pressed {
			d.replay()
		}
	case KEY_PLAYPAUSE:
		if !pressed {
			return
		}
		if d.ctrl.IsPlaying() {
			d.ctrl.Stop()
		} else {
			d.replay()
		}
	}
}

func (d *daemon) replay() {
	if err := d.play(0, 0, ""); err != nil {
		d.logger.Warn("play key ignored", "error", err)
	}
}

// ============================================================================
// IPC bridge
// ============================================================================

// callHandler returns an ipc.Handler that forwards requests into the daemon
// loop and waits for the result.
func callHandler(calls chan<- call) ipc.Handler {
	return func(ctx context.Context, req ipc.Request) (any, error) {
		reply := make(chan callResult, 1)
		select {
		case calls <- call{req: req, reply: reply}:
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return nil, errors.New("request queue full")
		}
		select {
		case res := <-reply:
			return res.data, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
