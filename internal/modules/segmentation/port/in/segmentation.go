package in

import (
	"context"

	"focustrail/internal/modules/segmentation/dto"
)

type Usecase interface {
	SegmentSession(ctx context.Context, sessionID string) (dto.SessionSegmentsOutput, error)
	ListSegments(ctx context.Context, sessionID string) ([]dto.SegmentOutput, error)
	ListInterruptions(ctx context.Context, sessionID string) ([]dto.InterruptionOutput, error)
	SegmentInterruptions(ctx context.Context, segmentID string) ([]dto.InterruptionOutput, error)
	WindowTitles(ctx context.Context, segmentID string) ([]dto.TitleOutput, error)
	Summarize(ctx context.Context, sessionID string) (dto.SummarizeOutput, error)
}
