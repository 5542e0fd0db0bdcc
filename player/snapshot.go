package player

import (
	"fmt"
	"strings"
)

// Snapshot is a read-only copy of the controller state for status displays.
type Snapshot struct {
	Player      string          `json:"player"`
	Status      Status          `json:"status"`
	Track       uint16          `json:"track"`
	TrackName   string          `json:"track_name,omitempty"`
	Volume      int             `json:"volume"`
	Fade        FadeDirection   `json:"fade"`
	FadeTarget  int             `json:"fade_target,omitempty"`
	Equalizer   EqualizerPreset `json:"equalizer"`
	Looping     bool            `json:"looping"`
	DurationMS  int64           `json:"duration_ms"`
	ElapsedMS   int64           `json:"elapsed_ms"`
	RemainingMS int64           `json:"remaining_ms"`
	Pending     string          `json:"pending,omitempty"`
	LastCommand string          `json:"last_command,omitempty"`
	Degraded    bool            `json:"degraded"`
}

// Snapshot captures the current state.
func (c *Controller) Snapshot() Snapshot {
	now := c.clock.Now()
	s := Snapshot{
		Player:      c.backend.Name(),
		Status:      c.playback.status,
		Track:       c.playback.track,
		TrackName:   c.playback.name,
		Volume:      c.volume,
		Fade:        c.fade.direction,
		Equalizer:   c.eq,
		Looping:     c.looping,
		DurationMS:  c.playback.duration.Milliseconds(),
		ElapsedMS:   c.playback.elapsed(now).Milliseconds(),
		RemainingMS: c.playback.remaining(now).Milliseconds(),
		Degraded:    c.degraded,
	}
	if c.fade.active() {
		s.FadeTarget = c.fade.target
	}
	if c.queue.hasPending() {
		s.Pending = c.backend.CmdName(c.queue.pending.Op)
	}
	if !c.lastSent.IsEmpty() {
		s.LastCommand = c.backend.CmdName(c.lastSent.Op)
	}
	return s
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "playing":
		*s = Playing
	case "stopped":
		*s = Stopped
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

func (d FadeDirection) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *FadeDirection) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "in":
		*d = FadeIn
	case "out":
		*d = FadeOut
	case "none", "":
		*d = FadeNone
	default:
		return fmt.Errorf("unknown fade direction %q", b)
	}
	return nil
}

func (p EqualizerPreset) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *EqualizerPreset) UnmarshalText(b []byte) error {
	v, err := ParseEqualizerPreset(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
