package in

import (
	"context"

	"focustrail/internal/modules/segmentation/dto"
	segmentationin "focustrail/internal/modules/segmentation/port/in"
)

type CLIHandler struct {
	usecase segmentationin.Usecase
}

func NewCLIHandler(usecase segmentationin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Resegment(ctx context.Context, sessionID string) (dto.SessionSegmentsOutput, error) {
	return h.usecase.SegmentSession(ctx, sessionID)
}

func (h CLIHandler) Segments(ctx context.Context, sessionID string) ([]dto.SegmentOutput, error) {
	return h.usecase.ListSegments(ctx, sessionID)
}

func (h CLIHandler) Interruptions(ctx context.Context, segmentID string) ([]dto.InterruptionOutput, error) {
	return h.usecase.SegmentInterruptions(ctx, segmentID)
}

func (h CLIHandler) Titles(ctx context.Context, segmentID string) ([]dto.TitleOutput, error) {
	return h.usecase.WindowTitles(ctx, segmentID)
}

func (h CLIHandler) Summarize(ctx context.Context, sessionID string) (dto.SummarizeOutput, error) {
	return h.usecase.Summarize(ctx, sessionID)
}
