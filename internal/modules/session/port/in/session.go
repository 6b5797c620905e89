package in

import (
	"context"

	"focustrail/internal/modules/session/dto"
)

type Usecase interface {
	RunDaemon(ctx context.Context) error
	StartDaemon(ctx context.Context) error
	StopDaemon(ctx context.Context) error
	DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error)

	Start(ctx context.Context, input dto.StartInput) (dto.StateOutput, error)
	End(ctx context.Context) (dto.SessionOutput, error)
	Cancel(ctx context.Context) (dto.StateOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	Events(ctx context.Context, since int64) ([]dto.EventOutput, error)

	ListSessions(ctx context.Context, limit, offset int) ([]dto.SessionOutput, error)
	GetSession(ctx context.Context, sessionID string) (dto.SessionOutput, error)
	Report(ctx context.Context, sessionID string) (dto.ReportOutput, error)
	// SetSessionLabel tags a session; an empty labelID clears the tag.
	SetSessionLabel(ctx context.Context, sessionID, labelID string) error

	CreateLabel(ctx context.Context, input dto.LabelInput) (dto.LabelOutput, error)
	ListLabels(ctx context.Context) ([]dto.LabelOutput, error)
	UpdateLabel(ctx context.Context, labelID string, patch dto.LabelPatch) (dto.LabelOutput, error)
	DeleteLabel(ctx context.Context, labelID string) error
}
