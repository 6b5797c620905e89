package dto

import (
	"time"

	capturedto "focustrail/internal/modules/capture/dto"
)

type StartInput struct {
	Target time.Duration
	Mode   string
	Label  string
}

type StateOutput struct {
	Phase       string    `json:"phase"`
	SessionID   string    `json:"session_id,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	Label       string    `json:"label,omitempty"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	TargetMS    int64     `json:"target_ms"`
	ActiveMS    int64     `json:"active_ms"`
	RemainingMS int64     `json:"remaining_ms"`
}

type SessionOutput struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	Status    string    `json:"status"`
	Mode      string    `json:"mode"`
	Label     string    `json:"label,omitempty"`
	TargetMS  int64     `json:"target_ms"`
	ActiveMS  int64     `json:"active_ms"`
	LabelID   string    `json:"label_id,omitempty"`
	LabelName string    `json:"label_name,omitempty"`
	TopApps   []TopApp  `json:"top_apps,omitempty"`
}

type TopApp struct {
	AppID        string  `json:"app_id"`
	Owner        string  `json:"owner,omitempty"`
	DurationSecs float64 `json:"duration_secs"`
	Percentage   float64 `json:"percentage"`
}

type LabelInput struct {
	Name  string
	Color string
}

// LabelPatch updates only the fields that are set.
type LabelPatch struct {
	Name  *string
	Color *string
}

type LabelOutput struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type EventOutput struct {
	Seq     int64          `json:"seq"`
	Kind    string         `json:"kind" jsonschema:"enum=state-changed,enum=heartbeat,enum=session-completed"`
	At      time.Time      `json:"at"`
	State   StateOutput    `json:"state"`
	Session *SessionOutput `json:"session,omitempty"`
}

type StatusOutput struct {
	PID      int                    `json:"pid"`
	Provider string                 `json:"provider"`
	State    StateOutput            `json:"state"`
	Capture  capturedto.StatsOutput `json:"capture"`
	LastSeq  int64                  `json:"last_seq"`
}

type DaemonStatusOutput struct {
	Running    bool         `json:"running"`
	PID        int          `json:"pid"`
	SocketPath string       `json:"socket_path"`
	Status     StatusOutput `json:"status"`
}

type ReportOutput struct {
	SessionID string
	Path      string
}
