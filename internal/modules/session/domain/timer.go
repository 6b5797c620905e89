package domain

import (
	"time"

	"focustrail/internal/platform/clock"
)

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseStopped Phase = "stopped"
)

// State is the runtime view of the timer at one instant.
type State struct {
	Phase       Phase     `json:"phase"`
	SessionID   string    `json:"session_id,omitempty"`
	Mode        Mode      `json:"mode,omitempty"`
	Label       string    `json:"label,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	TargetMS    int64     `json:"target_ms"`
	ActiveMS    int64     `json:"active_ms"`
	RemainingMS int64     `json:"remaining_ms"`
}

// Timer holds the in-memory session state. Active time is never accumulated
// tick by tick; it is re-derived as baseline plus the monotonic time elapsed
// since the running anchor, so missed or late ticks cannot make it drift.
type Timer struct {
	phase     Phase
	sessionID string
	mode      Mode
	label     string
	startedAt time.Time
	targetMS  int64
	baseline  time.Duration
	anchor    clock.Instant
	frozenMS  int64
}

func (t *Timer) Phase() Phase {
	if t.phase == "" {
		return PhaseIdle
	}
	return t.phase
}

func (t *Timer) SessionID() string { return t.sessionID }
func (t *Timer) Mode() Mode        { return t.mode }
func (t *Timer) TargetMS() int64   { return t.targetMS }

func (t *Timer) Begin(sessionID string, mode Mode, label string, targetMS int64, startedAt time.Time, now clock.Instant) {
	*t = Timer{
		phase:     PhaseRunning,
		sessionID: sessionID,
		mode:      mode,
		label:     label,
		startedAt: startedAt,
		targetMS:  targetMS,
		anchor:    now,
	}
}

func (t *Timer) ActiveMS(now clock.Instant) int64 {
	if t.Phase() != PhaseRunning {
		return t.frozenMS
	}
	elapsed := now.Sub(t.anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	return (t.baseline + elapsed).Milliseconds()
}

// RemainingMS is zero unless a deadline session is running.
func (t *Timer) RemainingMS(now clock.Instant) int64 {
	if t.Phase() != PhaseRunning || !t.mode.HasDeadline() {
		return 0
	}
	return max(t.targetMS-t.ActiveMS(now), 0)
}

// Expired reports whether a running deadline session has reached its target.
func (t *Timer) Expired(now clock.Instant) bool {
	return t.Phase() == PhaseRunning && t.mode.HasDeadline() && t.ActiveMS(now) >= t.targetMS
}

// Stop freezes active time, clamped to the target in deadline modes, and
// returns the frozen value. A stopwatch target is informational only.
func (t *Timer) Stop(now clock.Instant) int64 {
	active := t.ActiveMS(now)
	if t.mode.HasDeadline() && t.targetMS > 0 {
		active = min(active, t.targetMS)
	}
	t.frozenMS = active
	t.baseline = time.Duration(active) * time.Millisecond
	t.phase = PhaseStopped
	return active
}

func (t *Timer) Reset() {
	*t = Timer{phase: PhaseIdle}
}

func (t *Timer) Snapshot(now clock.Instant) State {
	if t.Phase() == PhaseIdle {
		return State{Phase: PhaseIdle}
	}
	return State{
		Phase:       t.Phase(),
		SessionID:   t.sessionID,
		Mode:        t.mode,
		Label:       t.label,
		StartedAt:   t.startedAt,
		TargetMS:    t.targetMS,
		ActiveMS:    t.ActiveMS(now),
		RemainingMS: t.RemainingMS(now),
	}
}
