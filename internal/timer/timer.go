// Package timer tracks the driver's trip stopwatch and mirrors its state to
// connected clients.
package timer

import (
	"fmt"
	"time"

	"github.com/motoristapro/offerwatch/internal/syncx"
)

// Status of the stopwatch.
type Status string

const (
	Stopped Status = "stopped"
	Running Status = "running"
	Paused  Status = "paused"
)

// SyncTolerance is how far an incoming start time may drift from the local
// one before a running timer is restarted on it.
const SyncTolerance = time.Second

// ParseStatus accepts the wire names; anything else is an error.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case Stopped, Running, Paused:
		return Status(s), nil
	}
	return Stopped, fmt.Errorf("unknown timer state %q", s)
}

// Snapshot is the externally visible timer state.
type Snapshot struct {
	Status    Status        `json:"state"`
	StartedAt time.Time     `json:"start_ts"`
	Elapsed   time.Duration `json:"elapsed"`
}

type state struct {
	status    Status
	startedAt time.Time
	paused    time.Duration
}

// Timer is a goroutine-safe stopwatch.
type Timer struct {
	st  *syncx.RWGuard[state]
	now func() time.Time
}

// New returns a stopped timer.
func New() *Timer {
	return &Timer{st: syncx.NewGuard(state{status: Stopped}), now: time.Now}
}

// WithClock replaces the time source (tests).
func (t *Timer) WithClock(now func() time.Time) *Timer {
	t.now = now
	return t
}

// Watch registers fn to receive every state change.
func (t *Timer) Watch(fn func(Snapshot)) {
	t.st.Watch(func(_, next state) { fn(t.snapshot(next)) })
}

func (t *Timer) apply(fn func(s state, now time.Time) state) Snapshot {
	next, _ := t.st.Update(func(s state) (state, error) { return fn(s, t.now()), nil })
	return t.snapshot(next)
}

// Start (re)starts counting from zero.
func (t *Timer) Start() Snapshot {
	return t.apply(func(_ state, now time.Time) state {
		return state{status: Running, startedAt: now}
	})
}

// Pause freezes the elapsed time. Pausing a stopped timer does nothing.
func (t *Timer) Pause() Snapshot {
	return t.apply(func(s state, now time.Time) state {
		if s.status != Running {
			return s
		}
		return state{status: Paused, startedAt: s.startedAt, paused: now.Sub(s.startedAt)}
	})
}

// Resume continues from the frozen elapsed time.
func (t *Timer) Resume() Snapshot {
	return t.apply(func(s state, now time.Time) state {
		if s.status == Running {
			return s
		}
		return state{status: Running, startedAt: now.Add(-s.paused)}
	})
}

// Stop resets the timer.
func (t *Timer) Stop() Snapshot {
	return t.apply(func(state, time.Time) state {
		return state{status: Stopped}
	})
}

// Sync adopts state reported by another client. A running timer is only
// restarted when startedAt differs from the local start by more than
// SyncTolerance; a zero startedAt means now.
func (t *Timer) Sync(status Status, startedAt time.Time, elapsed time.Duration) Snapshot {
	return t.apply(func(s state, now time.Time) state {
		switch status {
		case Running:
			base := startedAt
			if base.IsZero() {
				base = now
			}
			if s.status != Running || absDuration(s.startedAt.Sub(base)) > SyncTolerance {
				return state{status: Running, startedAt: base}
			}
			return s
		case Paused:
			if elapsed < 0 {
				elapsed = 0
			}
			return state{status: Paused, startedAt: now.Add(-elapsed), paused: elapsed}
		default:
			return state{status: Stopped}
		}
	})
}

// Elapsed returns the current stopwatch reading.
func (t *Timer) Elapsed() time.Duration {
	return t.Snapshot().Elapsed
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() Snapshot {
	return t.snapshot(t.st.Get())
}

func (t *Timer) snapshot(s state) Snapshot {
	snap := Snapshot{Status: s.status, StartedAt: s.startedAt}
	switch s.status {
	case Running:
		snap.Elapsed = t.now().Sub(s.startedAt)
	case Paused:
		snap.Elapsed = s.paused
	}
	return snap
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
