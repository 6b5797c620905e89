package out

import (
	"context"

	segmentationin "focustrail/internal/modules/segmentation/port/in"
	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
)

// SegmentationBridge runs segmentation for the controller and reads segments
// back for reports.
type SegmentationBridge struct {
	segmentation segmentationin.Usecase
}

func NewSegmentationBridge(segmentation segmentationin.Usecase) *SegmentationBridge {
	return &SegmentationBridge{segmentation: segmentation}
}

var (
	_ sessionout.Segmenter     = (*SegmentationBridge)(nil)
	_ sessionout.SegmentSource = (*SegmentationBridge)(nil)
)

func (b *SegmentationBridge) SegmentSession(ctx context.Context, sessionID string) (sessionout.SegmentationSummary, error) {
	out, err := b.segmentation.SegmentSession(ctx, sessionID)
	if err != nil {
		return sessionout.SegmentationSummary{}, err
	}
	return sessionout.SegmentationSummary{Segments: len(out.Segments), Interruptions: len(out.Interruptions)}, nil
}

func (b *SegmentationBridge) ReportSegments(ctx context.Context, sessionID string) ([]domain.ReportSegment, error) {
	segments, err := b.segmentation.ListSegments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	interruptions, err := b.segmentation.ListInterruptions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	bySegment := map[string][]domain.ReportInterruption{}
	for _, in := range interruptions {
		bySegment[in.SegmentID] = append(bySegment[in.SegmentID], domain.ReportInterruption{
			AppID:        in.AppID,
			Owner:        in.Owner,
			Timestamp:    in.Timestamp,
			DurationSecs: in.DurationSecs,
		})
	}
	out := make([]domain.ReportSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, domain.ReportSegment{
			ID:            seg.ID,
			Start:         seg.Start,
			End:           seg.End,
			DurationSecs:  seg.DurationSecs,
			AppID:         seg.AppID,
			Owner:         seg.Owner,
			WindowTitle:   seg.WindowTitle,
			Confidence:    seg.Confidence,
			Transitioning: seg.Transitioning,
			Type:          seg.Type,
			Summary:       seg.Summary,
			Interruptions: bySegment[seg.ID],
		})
	}
	return out, nil
}
