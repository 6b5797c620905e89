package out

import (
	"context"

	capturedto "focustrail/internal/modules/capture/dto"
	capturein "focustrail/internal/modules/capture/port/in"
	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
)

type CaptureBridge struct {
	capture capturein.Usecase
}

func NewCaptureBridge(capture capturein.Usecase) sessionout.Capture {
	return &CaptureBridge{capture: capture}
}

func (b *CaptureBridge) Start(ctx context.Context, sessionID string) error {
	return b.capture.Start(ctx, sessionID)
}

func (b *CaptureBridge) Stop(ctx context.Context) error {
	return b.capture.Stop(ctx)
}

func (b *CaptureBridge) Stats(ctx context.Context) capturedto.StatsOutput {
	return b.capture.Stats(ctx)
}

// NewAppUsageBridge exposes capture's per-session app ranking to history.
func NewAppUsageBridge(capture capturein.Usecase) sessionout.AppUsage {
	return &CaptureBridge{capture: capture}
}

func (b *CaptureBridge) TopApps(ctx context.Context, sessionIDs []string, limit int) (map[string][]domain.TopApp, error) {
	usage, err := b.capture.TopApps(ctx, sessionIDs, limit)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]domain.TopApp, len(usage))
	for sessionID, apps := range usage {
		top := make([]domain.TopApp, 0, len(apps))
		for _, a := range apps {
			top = append(top, domain.TopApp{AppID: a.AppID, Owner: a.Owner, DurationSecs: a.DurationSecs, Percentage: a.Percentage})
		}
		out[sessionID] = top
	}
	return out, nil
}
