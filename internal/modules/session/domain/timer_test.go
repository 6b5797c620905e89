package domain_test

import (
	"testing"
	"time"

	"focustrail/internal/modules/session/domain"
	"focustrail/internal/platform/clock"
)

func TestTimerDerivesActiveFromAnchor(t *testing.T) {
	t.Parallel()
	mono := &clock.ManualMonotonic{}
	timer := &domain.Timer{}
	if timer.Phase() != domain.PhaseIdle {
		t.Fatalf("zero timer must be idle")
	}
	timer.Begin("s1", domain.ModeCountdown, "", 60_000, time.Unix(0, 0).UTC(), mono.Now())

	mono.Advance(1500 * time.Millisecond)
	if got := timer.ActiveMS(mono.Now()); got != 1500 {
		t.Fatalf("expected 1500ms active, got %d", got)
	}
	if got := timer.RemainingMS(mono.Now()); got != 58_500 {
		t.Fatalf("expected 58500ms remaining, got %d", got)
	}

	mono.Advance(65 * time.Second)
	if !timer.Expired(mono.Now()) {
		t.Fatalf("timer past its target must be expired")
	}
	if got := timer.Stop(mono.Now()); got != 60_000 {
		t.Fatalf("stop must clamp to target, got %d", got)
	}
	mono.Advance(time.Hour)
	if got := timer.ActiveMS(mono.Now()); got != 60_000 {
		t.Fatalf("stopped timer must stay frozen, got %d", got)
	}
	if timer.RemainingMS(mono.Now()) != 0 {
		t.Fatalf("stopped timer has nothing remaining")
	}

	timer.Reset()
	if snap := timer.Snapshot(mono.Now()); snap.Phase != domain.PhaseIdle || snap.SessionID != "" {
		t.Fatalf("reset must return to idle, got %+v", snap)
	}
}

func TestStopwatchHasNoDeadline(t *testing.T) {
	t.Parallel()
	mono := &clock.ManualMonotonic{}
	timer := &domain.Timer{}
	timer.Begin("s1", domain.ModeStopwatch, "reading", 0, time.Unix(0, 0).UTC(), mono.Now())
	mono.Advance(3 * time.Hour)
	if timer.Expired(mono.Now()) {
		t.Fatalf("stopwatch must never expire")
	}
	if got := timer.Stop(mono.Now()); got != (3 * time.Hour).Milliseconds() {
		t.Fatalf("stopwatch without target must not clamp, got %d", got)
	}
}

func TestStopwatchTargetDoesNotClamp(t *testing.T) {
	t.Parallel()
	mono := &clock.ManualMonotonic{}
	timer := &domain.Timer{}
	timer.Begin("s1", domain.ModeStopwatch, "", 60_000, time.Unix(0, 0).UTC(), mono.Now())
	mono.Advance(2 * time.Hour)
	if timer.Expired(mono.Now()) {
		t.Fatalf("stopwatch with a target must never expire")
	}
	if got := timer.Stop(mono.Now()); got != (2 * time.Hour).Milliseconds() {
		t.Fatalf("stopwatch target must not clamp, got %d", got)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	cases := map[string]domain.Mode{
		"":          domain.ModeCountdown,
		"Countdown": domain.ModeCountdown,
		"stopwatch": domain.ModeStopwatch,
		" break ":   domain.ModeBreak,
	}
	for raw, want := range cases {
		got, err := domain.ParseMode(raw)
		if err != nil || got != want {
			t.Fatalf("parse %q: got %q %v", raw, got, err)
		}
	}
	if _, err := domain.ParseMode("pomodoro"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if domain.ModeBreak.Tracked() || !domain.ModeBreak.HasDeadline() || domain.ModeStopwatch.HasDeadline() {
		t.Fatalf("unexpected mode flags")
	}
}
