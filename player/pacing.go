package player

import "time"

// pacer is the single-slot coalescing command queue. A newer command always
// replaces an undispatched older one; nothing is ever buffered behind the
// slot. After each dispatch the slot stays closed for a backend-defined gap.
type pacer struct {
	pending   Command
	nextReady time.Time
}

func (q *pacer) enqueue(cmd Command) (replaced Command) {
	replaced = q.pending
	q.pending = cmd
	return replaced
}

func (q *pacer) hasPending() bool { return !q.pending.IsEmpty() }

// take removes and returns the pending command when the gap since the last
// dispatch has elapsed. The slot is cleared before the caller dispatches, so
// a command enqueued during dispatch is kept for the next window.
func (q *pacer) take(now time.Time) (Command, bool) {
	if q.pending.IsEmpty() || now.Before(q.nextReady) {
		return Command{}, false
	}
	cmd := q.pending
	q.pending = Command{}
	return cmd, true
}

// dispatched closes the slot for the gap that follows cmd.
func (q *pacer) dispatched(cmd Command, b Backend, now time.Time) {
	gap := b.NormalGap()
	if b.IsPlayCommand(cmd.Op) {
		gap = b.AfterPlayGap()
	}
	q.nextReady = now.Add(gap)
}
