package in

import (
	"context"

	"focustrail/internal/modules/capture/dto"
)

type Usecase interface {
	Start(ctx context.Context, sessionID string) error
	Stop(ctx context.Context) error
	Stats(ctx context.Context) dto.StatsOutput
	Readings(ctx context.Context, sessionID string) ([]dto.ReadingOutput, error)
	AssignSegments(ctx context.Context, sessionID string, spans []dto.SegmentSpan) error
	SampleOnce(ctx context.Context) (dto.SampleOutput, error)
	// TopApps returns up to limit apps per session, longest first.
	TopApps(ctx context.Context, sessionIDs []string, limit int) (map[string][]dto.AppUsageOutput, error)
}
