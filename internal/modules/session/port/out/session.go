package out

import (
	"context"
	"time"

	capturedto "focustrail/internal/modules/capture/dto"
	"focustrail/internal/modules/session/domain"
)

type SessionRepository interface {
	InsertSession(ctx context.Context, session domain.Session) error
	MarkSessionStatus(ctx context.Context, sessionID string, status domain.Status, activeMS int64, stoppedAt, updatedAt time.Time) error
	UpdateSessionProgress(ctx context.Context, sessionID string, activeMS int64, updatedAt time.Time) error
	// GetIncompleteSession returns the oldest session still marked running,
	// or apperrors.ErrNotFound.
	GetIncompleteSession(ctx context.Context) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	// ListSessions returns completed and interrupted sessions, newest first.
	ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error)
}

// LabelRepository stores session labels. CreateLabel enforces
// domain.MaxLabels and unique names inside one transaction.
type LabelRepository interface {
	CreateLabel(ctx context.Context, label domain.Label) (domain.Label, error)
	ListLabels(ctx context.Context) ([]domain.Label, error)
	GetLabel(ctx context.Context, labelID string) (domain.Label, error)
	UpdateLabel(ctx context.Context, label domain.Label) error
	// DeleteLabel removes the label and clears it from tagged sessions.
	DeleteLabel(ctx context.Context, labelID string) error
	// SetSessionLabel tags a session; an empty labelID clears the tag.
	SetSessionLabel(ctx context.Context, sessionID, labelID string, updatedAt time.Time) error
}

// AppUsage ranks apps by captured time per session.
type AppUsage interface {
	TopApps(ctx context.Context, sessionIDs []string, limit int) (map[string][]domain.TopApp, error)
}

// Capture starts and stops context sampling for one session at a time.
type Capture interface {
	Start(ctx context.Context, sessionID string) error
	Stop(ctx context.Context) error
	Stats(ctx context.Context) capturedto.StatsOutput
}

type SegmentationSummary struct {
	Segments      int
	Interruptions int
}

type Segmenter interface {
	SegmentSession(ctx context.Context, sessionID string) (SegmentationSummary, error)
}

// Notifier receives controller events. Publish must not block.
type Notifier interface {
	Publish(event domain.Event)
}

// EventFeed keeps recent events for polling clients.
type EventFeed interface {
	Notifier
	Since(seq int64, limit int) []domain.Event
	LastSeq() int64
}

type SegmentSource interface {
	ReportSegments(ctx context.Context, sessionID string) ([]domain.ReportSegment, error)
}

type ReportStore interface {
	Write(ctx context.Context, report domain.Report) (string, error)
}

type DaemonStore interface {
	WritePID(ctx context.Context, pid int) error
	ReadPID(ctx context.Context) (int, error)
	ClearPID(ctx context.Context) error
	SocketPath() string
	LogPath() string
}

type StartRequest struct {
	TargetMS int64
	Mode     domain.Mode
	Label    string
}

type DaemonStatus struct {
	PID      int
	Provider string
	State    domain.State
	Capture  capturedto.StatsOutput
	LastSeq  int64
}

type DaemonRuntimeStatus struct {
	Running    bool
	PID        int
	SocketPath string
	Status     DaemonStatus
}

// IPCServer serves the daemon JSON-RPC API on a unix socket.
type IPCServer interface {
	Serve(ctx context.Context, socketPath string, handler IPCHandler) error
}

// IPCClient talks to a running daemon.
type IPCClient interface {
	Start(ctx context.Context, socketPath string, req StartRequest) (domain.State, error)
	End(ctx context.Context, socketPath string) (domain.Session, error)
	Cancel(ctx context.Context, socketPath string) (domain.State, error)
	Status(ctx context.Context, socketPath string) (DaemonStatus, error)
	Events(ctx context.Context, socketPath string, since int64) ([]domain.Event, error)
	Stop(ctx context.Context, socketPath string) error
}

type IPCHandler interface {
	Start(ctx context.Context, req StartRequest) (domain.State, error)
	End(ctx context.Context) (domain.Session, error)
	Cancel(ctx context.Context) (domain.State, error)
	Status(ctx context.Context) (DaemonStatus, error)
	Events(ctx context.Context, since int64) ([]domain.Event, error)
	Stop(ctx context.Context) error
}
