package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sessiondto "focustrail/internal/modules/session/dto"
)

type fakeSession struct {
	started []string
}

func (f *fakeSession) Start(_ context.Context, target time.Duration, mode, label string) (sessiondto.StateOutput, error) {
	f.started = append(f.started, mode+":"+target.String()+":"+label)
	return sessiondto.StateOutput{Phase: "running", Mode: mode}, nil
}
func (f *fakeSession) End(context.Context) (sessiondto.SessionOutput, error) {
	return sessiondto.SessionOutput{ID: "s-1", ActiveMS: 90_000}, errors.New("segment session: disk full")
}
func (f *fakeSession) Cancel(context.Context) (sessiondto.StateOutput, error) {
	return sessiondto.StateOutput{Phase: "stopped"}, nil
}
func (f *fakeSession) Status(context.Context) (sessiondto.StatusOutput, error) {
	return sessiondto.StatusOutput{PID: 7}, nil
}
func (f *fakeSession) Events(context.Context, int64) ([]sessiondto.EventOutput, error) {
	return nil, nil
}
func (f *fakeSession) Sessions(context.Context, int, int) ([]sessiondto.SessionOutput, error) {
	return nil, nil
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  command
	}{
		{"start", command{verb: "start", mode: "countdown", target: 25 * time.Minute}},
		{"start 50 deep work", command{verb: "start", mode: "countdown", target: 50 * time.Minute, label: "deep work"}},
		{"break 10", command{verb: "start", mode: "break", target: 10 * time.Minute}},
		{"stopwatch review", command{verb: "start", mode: "stopwatch", label: "review"}},
		{"end", command{verb: "end"}},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.input)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %+v want %+v", tc.input, got, tc.want)
		}
	}
	for _, bad := range []string{"start soon", "start 0", "lap"} {
		if _, err := parseCommand(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFormatClock(t *testing.T) {
	t.Parallel()
	if got := formatClock(1_499_999); got != "24:59" {
		t.Fatalf("got %q", got)
	}
	if got := formatClock(3_723_000); got != "1:02:03" {
		t.Fatalf("got %q", got)
	}
	if got := formatClock(-5); got != "00:00" {
		t.Fatalf("got %q", got)
	}
}

func TestEventsAdvanceSequenceAndSkipHeartbeats(t *testing.T) {
	t.Parallel()
	m := NewModel(&fakeSession{})
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	next, cmd := m.Update(eventsMsg{events: []sessiondto.EventOutput{
		{Seq: 4, Kind: "state-changed", At: at, State: sessiondto.StateOutput{Phase: "running", Mode: "countdown"}},
		{Seq: 5, Kind: "heartbeat", At: at},
		{Seq: 6, Kind: "session-completed", At: at, Session: &sessiondto.SessionOutput{ActiveMS: 60_000}},
	}})
	got := next.(Model)
	if got.lastSeq != 6 {
		t.Fatalf("expected last seq 6, got %d", got.lastSeq)
	}
	if len(got.log) != 2 || !strings.Contains(got.log[1], "completed 01:00") {
		t.Fatalf("unexpected log: %q", got.log)
	}
	if cmd == nil {
		t.Fatalf("expected history refresh after completion")
	}
}

func TestEndReportsSegmentationFailureWithDuration(t *testing.T) {
	t.Parallel()
	m := NewModel(&fakeSession{})
	msg := m.run(command{verb: "end"})()
	action, ok := msg.(actionMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if action.err != nil || !strings.Contains(action.verb, "ended 01:30") || !strings.Contains(action.verb, "disk full") {
		t.Fatalf("unexpected action: %+v", action)
	}
}

func TestKeysStartSessions(t *testing.T) {
	t.Parallel()
	fake := &fakeSession{}
	m := NewModel(fake)
	if msg := m.run(command{verb: "start", mode: "break", target: 5 * time.Minute})(); msg.(actionMsg).err != nil {
		t.Fatalf("unexpected error: %+v", msg)
	}
	if len(fake.started) != 1 || fake.started[0] != "break:5m0s:" {
		t.Fatalf("unexpected starts: %v", fake.started)
	}
}
