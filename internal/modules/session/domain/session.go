package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDaemonStartFailed = errors.New("daemon start failed")
	ErrDaemonNotRunning  = errors.New("daemon not running")
)

type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusInterrupted Status = "interrupted"
)

// Mode decides whether a session has a deadline and whether it leaves a trace.
type Mode string

const (
	ModeCountdown Mode = "countdown"
	ModeStopwatch Mode = "stopwatch"
	ModeBreak     Mode = "break"
)

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ModeCountdown, ModeStopwatch, ModeBreak:
		return m, nil
	case "":
		return ModeCountdown, nil
	default:
		return "", fmt.Errorf("unknown mode %q", raw)
	}
}

// HasDeadline reports whether the session auto-completes at its target.
func (m Mode) HasDeadline() bool {
	return m == ModeCountdown || m == ModeBreak
}

// Tracked reports whether the session is persisted and captured.
func (m Mode) Tracked() bool {
	return m != ModeBreak
}

type Session struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	Status    Status    `json:"status"`
	Mode      Mode      `json:"mode"`
	Label     string    `json:"label,omitempty"`
	TargetMS  int64     `json:"target_ms"`
	ActiveMS  int64     `json:"active_ms"`
	LabelID   string    `json:"label_id,omitempty"`
	LabelName string    `json:"label_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// TopApps is filled by history listings only.
	TopApps []TopApp `json:"top_apps,omitempty"`
}

func (s Session) Stopped() bool {
	return !s.StoppedAt.IsZero()
}

// Report is the material rendered into a session note.
type Report struct {
	Session  Session
	Segments []ReportSegment
}

type ReportSegment struct {
	ID            string
	Start         time.Time
	End           time.Time
	DurationSecs  float64
	AppID         string
	Owner         string
	WindowTitle   string
	Confidence    float64
	Transitioning bool
	Type          string
	Summary       string
	Interruptions []ReportInterruption
}

type ReportInterruption struct {
	AppID        string
	Owner        string
	Timestamp    time.Time
	DurationSecs float64
}
