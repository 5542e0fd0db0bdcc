package player

import "time"

// Status is the playback state as the controller believes it to be. The
// modules themselves are never queried.
type Status uint8

const (
	Stopped Status = iota
	Playing
)

func (s Status) String() string {
	if s == Playing {
		return "playing"
	}
	return "stopped"
}

// playback tracks what is playing and for how long.
//
// Invariants:
//   - Playing implies track != 0.
//   - Stopped implies track == 0 and name == "".
//   - duration == 0 means "indefinite".
type playback struct {
	status    Status
	track     uint16
	name      string
	startedAt time.Time
	duration  time.Duration
}

func (p *playback) play(track uint16, duration time.Duration, name string, now time.Time) {
	*p = playback{
		status:    Playing,
		track:     track,
		name:      name,
		startedAt: now,
		duration:  max(duration, 0),
	}
}

func (p *playback) stop() {
	*p = playback{}
}

// expired reports whether a timed track has run past its duration. The
// caller is expected to stop playback when it returns true.
func (p *playback) expired(now time.Time) bool {
	return p.status == Playing && p.duration > 0 && now.Sub(p.startedAt) >= p.duration
}

func (p *playback) elapsed(now time.Time) time.Duration {
	if p.status != Playing {
		return 0
	}
	return now.Sub(p.startedAt)
}

// remaining is zero for stopped or indefinite playback.
func (p *playback) remaining(now time.Time) time.Duration {
	if p.status != Playing || p.duration == 0 {
		return 0
	}
	return max(p.duration-now.Sub(p.startedAt), 0)
}

// StatusChange is delivered to observers once per transition.
type StatusChange struct {
	From  Status
	To    Status
	Track uint16
	Name  string
	At    time.Time
}

// statusEdge turns a level (the current status) into edges: it reports a
// change only on the first observation after a transition.
type statusEdge struct {
	last Status
}

func (e *statusEdge) observe(s Status) (from Status, changed bool) {
	from = e.last
	e.last = s
	return from, from != s
}
