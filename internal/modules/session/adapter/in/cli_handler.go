package in

import (
	"context"
	"time"

	"focustrail/internal/modules/session/dto"
	sessionin "focustrail/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) RunDaemon(ctx context.Context) error {
	return h.usecase.RunDaemon(ctx)
}

func (h CLIHandler) StartDaemon(ctx context.Context) error {
	return h.usecase.StartDaemon(ctx)
}

func (h CLIHandler) StopDaemon(ctx context.Context) error {
	return h.usecase.StopDaemon(ctx)
}

func (h CLIHandler) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	return h.usecase.DaemonStatus(ctx)
}

func (h CLIHandler) Start(ctx context.Context, target time.Duration, mode, label string) (dto.StateOutput, error) {
	return h.usecase.Start(ctx, dto.StartInput{Target: target, Mode: mode, Label: label})
}

func (h CLIHandler) End(ctx context.Context) (dto.SessionOutput, error) {
	return h.usecase.End(ctx)
}

func (h CLIHandler) Cancel(ctx context.Context) (dto.StateOutput, error) {
	return h.usecase.Cancel(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Events(ctx context.Context, since int64) ([]dto.EventOutput, error) {
	return h.usecase.Events(ctx, since)
}

func (h CLIHandler) Sessions(ctx context.Context, limit, offset int) ([]dto.SessionOutput, error) {
	return h.usecase.ListSessions(ctx, limit, offset)
}

func (h CLIHandler) Session(ctx context.Context, sessionID string) (dto.SessionOutput, error) {
	return h.usecase.GetSession(ctx, sessionID)
}

func (h CLIHandler) Report(ctx context.Context, sessionID string) (dto.ReportOutput, error) {
	return h.usecase.Report(ctx, sessionID)
}

func (h CLIHandler) SetSessionLabel(ctx context.Context, sessionID, labelID string) error {
	return h.usecase.SetSessionLabel(ctx, sessionID, labelID)
}

func (h CLIHandler) Labels(ctx context.Context) ([]dto.LabelOutput, error) {
	return h.usecase.ListLabels(ctx)
}

func (h CLIHandler) CreateLabel(ctx context.Context, name, color string) (dto.LabelOutput, error) {
	return h.usecase.CreateLabel(ctx, dto.LabelInput{Name: name, Color: color})
}

func (h CLIHandler) UpdateLabel(ctx context.Context, labelID string, patch dto.LabelPatch) (dto.LabelOutput, error) {
	return h.usecase.UpdateLabel(ctx, labelID, patch)
}

func (h CLIHandler) DeleteLabel(ctx context.Context, labelID string) error {
	return h.usecase.DeleteLabel(ctx, labelID)
}
