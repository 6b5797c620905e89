package usecase

import (
	"context"
	"fmt"

	"focustrail/internal/modules/session/domain"
	"focustrail/internal/modules/session/dto"
	sessionin "focustrail/internal/modules/session/port/in"
	sessionout "focustrail/internal/modules/session/port/out"
	apperrors "focustrail/internal/platform/errors"
)

type daemonPort interface {
	RunDaemon(ctx context.Context) error
	StartDaemon(ctx context.Context) error
	StopDaemon(ctx context.Context) error
	DaemonStatus(ctx context.Context) (sessionout.DaemonRuntimeStatus, error)
	Start(ctx context.Context, req sessionout.StartRequest) (domain.State, error)
	End(ctx context.Context) (domain.Session, error)
	Cancel(ctx context.Context) (domain.State, error)
	Status(ctx context.Context) (sessionout.DaemonStatus, error)
	Events(ctx context.Context, since int64) ([]domain.Event, error)
}

type historyPort interface {
	List(ctx context.Context, limit, offset int) ([]domain.Session, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Report(ctx context.Context, sessionID string) (string, error)
}

type labelPort interface {
	Create(ctx context.Context, name, color string) (domain.Label, error)
	List(ctx context.Context) ([]domain.Label, error)
	Update(ctx context.Context, labelID string, name, color *string) (domain.Label, error)
	Delete(ctx context.Context, labelID string) error
	Assign(ctx context.Context, sessionID, labelID string) error
}

type Interactor struct {
	daemon  daemonPort
	history historyPort
	labels  labelPort
}

func NewInteractor(daemon daemonPort, history historyPort, labels labelPort) sessionin.Usecase {
	return &Interactor{daemon: daemon, history: history, labels: labels}
}

func (i *Interactor) RunDaemon(ctx context.Context) error {
	return i.daemon.RunDaemon(ctx)
}

func (i *Interactor) StartDaemon(ctx context.Context) error {
	return i.daemon.StartDaemon(ctx)
}

func (i *Interactor) StopDaemon(ctx context.Context) error {
	return i.daemon.StopDaemon(ctx)
}

func (i *Interactor) DaemonStatus(ctx context.Context) (dto.DaemonStatusOutput, error) {
	status, err := i.daemon.DaemonStatus(ctx)
	if err != nil {
		return dto.DaemonStatusOutput{}, err
	}
	return dto.DaemonStatusOutput{
		Running:    status.Running,
		PID:        status.PID,
		SocketPath: status.SocketPath,
		Status:     mapStatus(status.Status),
	}, nil
}

func (i *Interactor) Start(ctx context.Context, input dto.StartInput) (dto.StateOutput, error) {
	mode, err := domain.ParseMode(input.Mode)
	if err != nil {
		return dto.StateOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if input.Target < 0 {
		return dto.StateOutput{}, fmt.Errorf("%w: negative target", apperrors.ErrInvalidInput)
	}
	state, err := i.daemon.Start(ctx, sessionout.StartRequest{
		TargetMS: input.Target.Milliseconds(),
		Mode:     mode,
		Label:    input.Label,
	})
	if err != nil {
		return dto.StateOutput{}, err
	}
	return mapState(state), nil
}

// End returns the finalized session alongside any segmentation error.
func (i *Interactor) End(ctx context.Context) (dto.SessionOutput, error) {
	session, err := i.daemon.End(ctx)
	if session.ID == "" {
		return dto.SessionOutput{}, err
	}
	return mapSession(session), err
}

func (i *Interactor) Cancel(ctx context.Context) (dto.StateOutput, error) {
	state, err := i.daemon.Cancel(ctx)
	if err != nil {
		return dto.StateOutput{}, err
	}
	return mapState(state), nil
}

func (i *Interactor) Status(ctx context.Context) (dto.StatusOutput, error) {
	status, err := i.daemon.Status(ctx)
	if err != nil {
		return dto.StatusOutput{}, err
	}
	return mapStatus(status), nil
}

func (i *Interactor) Events(ctx context.Context, since int64) ([]dto.EventOutput, error) {
	events, err := i.daemon.Events(ctx, since)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EventOutput, 0, len(events))
	for _, e := range events {
		item := dto.EventOutput{Seq: e.Seq, Kind: string(e.Kind), At: e.At, State: mapState(e.State)}
		if e.Session != nil {
			s := mapSession(*e.Session)
			item.Session = &s
		}
		out = append(out, item)
	}
	return out, nil
}

func (i *Interactor) ListSessions(ctx context.Context, limit, offset int) ([]dto.SessionOutput, error) {
	sessions, err := i.history.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, mapSession(s))
	}
	return out, nil
}

func (i *Interactor) GetSession(ctx context.Context, sessionID string) (dto.SessionOutput, error) {
	session, err := i.history.Get(ctx, sessionID)
	if err != nil {
		return dto.SessionOutput{}, err
	}
	return mapSession(session), nil
}

func (i *Interactor) Report(ctx context.Context, sessionID string) (dto.ReportOutput, error) {
	path, err := i.history.Report(ctx, sessionID)
	if err != nil {
		return dto.ReportOutput{}, err
	}
	return dto.ReportOutput{SessionID: sessionID, Path: path}, nil
}

func (i *Interactor) SetSessionLabel(ctx context.Context, sessionID, labelID string) error {
	return i.labels.Assign(ctx, sessionID, labelID)
}

func (i *Interactor) CreateLabel(ctx context.Context, input dto.LabelInput) (dto.LabelOutput, error) {
	l, err := i.labels.Create(ctx, input.Name, input.Color)
	if err != nil {
		return dto.LabelOutput{}, err
	}
	return mapLabel(l), nil
}

func (i *Interactor) ListLabels(ctx context.Context) ([]dto.LabelOutput, error) {
	labels, err := i.labels.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LabelOutput, 0, len(labels))
	for _, l := range labels {
		out = append(out, mapLabel(l))
	}
	return out, nil
}

func (i *Interactor) UpdateLabel(ctx context.Context, labelID string, patch dto.LabelPatch) (dto.LabelOutput, error) {
	l, err := i.labels.Update(ctx, labelID, patch.Name, patch.Color)
	if err != nil {
		return dto.LabelOutput{}, err
	}
	return mapLabel(l), nil
}

func (i *Interactor) DeleteLabel(ctx context.Context, labelID string) error {
	return i.labels.Delete(ctx, labelID)
}

func mapLabel(l domain.Label) dto.LabelOutput {
	return dto.LabelOutput{
		ID:         l.ID,
		Name:       l.Name,
		Color:      l.Color,
		OrderIndex: l.OrderIndex,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func mapState(s domain.State) dto.StateOutput {
	return dto.StateOutput{
		Phase:       string(s.Phase),
		SessionID:   s.SessionID,
		Mode:        string(s.Mode),
		Label:       s.Label,
		StartedAt:   s.StartedAt,
		TargetMS:    s.TargetMS,
		ActiveMS:    s.ActiveMS,
		RemainingMS: s.RemainingMS,
	}
}

func mapSession(s domain.Session) dto.SessionOutput {
	return dto.SessionOutput{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		StoppedAt: s.StoppedAt,
		Status:    string(s.Status),
		Mode:      string(s.Mode),
		Label:     s.Label,
		TargetMS:  s.TargetMS,
		ActiveMS:  s.ActiveMS,
		LabelID:   s.LabelID,
		LabelName: s.LabelName,
		TopApps:   mapTopApps(s.TopApps),
	}
}

func mapTopApps(apps []domain.TopApp) []dto.TopApp {
	if len(apps) == 0 {
		return nil
	}
	out := make([]dto.TopApp, 0, len(apps))
	for _, a := range apps {
		out = append(out, dto.TopApp{AppID: a.AppID, Owner: a.Owner, DurationSecs: a.DurationSecs, Percentage: a.Percentage})
	}
	return out
}

func mapStatus(s sessionout.DaemonStatus) dto.StatusOutput {
	return dto.StatusOutput{
		PID:      s.PID,
		Provider: s.Provider,
		State:    mapState(s.State),
		Capture:  s.Capture,
		LastSeq:  s.LastSeq,
	}
}
