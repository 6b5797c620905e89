package out

import (
	"context"

	capturedto "focustrail/internal/modules/capture/dto"
	capturein "focustrail/internal/modules/capture/port/in"
	"focustrail/internal/modules/segmentation/domain"
	segmentationout "focustrail/internal/modules/segmentation/port/out"
)

type CaptureReadingSource struct {
	capture capturein.Usecase
}

func NewCaptureReadingSource(capture capturein.Usecase) segmentationout.ReadingSource {
	return &CaptureReadingSource{capture: capture}
}

func (a *CaptureReadingSource) ReadingsForSession(ctx context.Context, sessionID string) ([]domain.Reading, error) {
	readings, err := a.capture.Readings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Reading, 0, len(readings))
	for _, r := range readings {
		out = append(out, domain.Reading{
			ID:                    r.ID,
			Timestamp:             r.Timestamp,
			AppID:                 r.AppID,
			Owner:                 r.Owner,
			Title:                 r.Title,
			Fingerprint:           r.Fingerprint,
			HasRecognition:        r.HasRecognition,
			RecognitionConfidence: r.RecognitionConfidence,
			RecognizedText:        r.RecognizedText,
		})
	}
	return out, nil
}

func (a *CaptureReadingSource) AssignSegments(ctx context.Context, sessionID string, segments []domain.Segment) error {
	spans := make([]capturedto.SegmentSpan, 0, len(segments))
	for _, seg := range segments {
		spans = append(spans, capturedto.SegmentSpan{SegmentID: seg.ID, Start: seg.Start, End: seg.End})
	}
	return a.capture.AssignSegments(ctx, sessionID, spans)
}
