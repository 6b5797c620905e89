package usecase

import (
	"context"

	"focustrail/internal/modules/segmentation/domain"
	"focustrail/internal/modules/segmentation/dto"
	segmentationin "focustrail/internal/modules/segmentation/port/in"
	"focustrail/internal/modules/segmentation/service"
)

type Interactor struct {
	svc *service.SegmentationService
}

func NewInteractor(svc *service.SegmentationService) segmentationin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) SegmentSession(ctx context.Context, sessionID string) (dto.SessionSegmentsOutput, error) {
	result, err := i.svc.SegmentSession(ctx, sessionID)
	if err != nil {
		return dto.SessionSegmentsOutput{}, err
	}
	out := dto.SessionSegmentsOutput{SessionID: sessionID}
	for _, seg := range result.Segments {
		out.Segments = append(out.Segments, toSegmentOutput(seg))
	}
	for _, in := range result.Interruptions {
		out.Interruptions = append(out.Interruptions, toInterruptionOutput(in))
	}
	return out, nil
}

func (i *Interactor) ListSegments(ctx context.Context, sessionID string) ([]dto.SegmentOutput, error) {
	segments, err := i.svc.Segments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SegmentOutput, 0, len(segments))
	for _, seg := range segments {
		out = append(out, toSegmentOutput(seg))
	}
	return out, nil
}

func (i *Interactor) ListInterruptions(ctx context.Context, sessionID string) ([]dto.InterruptionOutput, error) {
	items, err := i.svc.Interruptions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InterruptionOutput, 0, len(items))
	for _, in := range items {
		out = append(out, toInterruptionOutput(in))
	}
	return out, nil
}

func (i *Interactor) SegmentInterruptions(ctx context.Context, segmentID string) ([]dto.InterruptionOutput, error) {
	items, err := i.svc.SegmentInterruptions(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.InterruptionOutput, 0, len(items))
	for _, in := range items {
		out = append(out, toInterruptionOutput(in))
	}
	return out, nil
}

func (i *Interactor) WindowTitles(ctx context.Context, segmentID string) ([]dto.TitleOutput, error) {
	titles, err := i.svc.Titles(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TitleOutput, 0, len(titles))
	for _, t := range titles {
		out = append(out, dto.TitleOutput{Title: t.Title, Readings: t.Readings, Secs: t.Secs})
	}
	return out, nil
}

func (i *Interactor) Summarize(ctx context.Context, sessionID string) (dto.SummarizeOutput, error) {
	done, skipped, err := i.svc.Summarize(ctx, sessionID)
	if err != nil {
		return dto.SummarizeOutput{}, err
	}
	return dto.SummarizeOutput{SessionID: sessionID, Summarized: done, Skipped: skipped}, nil
}

func toSegmentOutput(seg domain.Segment) dto.SegmentOutput {
	return dto.SegmentOutput{
		ID:                 seg.ID,
		SessionID:          seg.SessionID,
		Start:              seg.Start,
		End:                seg.End,
		DurationSecs:       seg.DurationSecs,
		AppID:              seg.AppID,
		Owner:              seg.Owner,
		WindowTitle:        seg.WindowTitle,
		ReadingCount:       seg.ReadingCount,
		UniqueFingerprints: seg.UniqueFingerprints,
		DurationScore:      seg.Scores.Duration,
		StabilityScore:     seg.Scores.Stability,
		VisualScore:        seg.Scores.Visual,
		RecognitionScore:   seg.Scores.Recognition,
		Confidence:         seg.Confidence,
		Transitioning:      seg.Transitioning,
		Type:               string(seg.Type),
		Summary:            seg.Summary,
	}
}

func toInterruptionOutput(in domain.Interruption) dto.InterruptionOutput {
	return dto.InterruptionOutput{
		ID:           in.ID,
		SegmentID:    in.SegmentID,
		AppID:        in.AppID,
		Owner:        in.Owner,
		Timestamp:    in.Timestamp,
		DurationSecs: in.DurationSecs,
	}
}
