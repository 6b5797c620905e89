package out

import (
	"context"

	"focustrail/internal/modules/segmentation/domain"
)

// ReadingSource loads a session's readings in timestamp order and records
// which segment each reading ended up in.
type ReadingSource interface {
	ReadingsForSession(ctx context.Context, sessionID string) ([]domain.Reading, error)
	AssignSegments(ctx context.Context, sessionID string, segments []domain.Segment) error
}

type SegmentRepository interface {
	// ReplaceSegments swaps the session's segments and interruptions in one
	// transaction. Nothing is written if any row fails.
	ReplaceSegments(ctx context.Context, sessionID string, result domain.Result) error
	SegmentsForSession(ctx context.Context, sessionID string) ([]domain.Segment, error)
	InterruptionsForSession(ctx context.Context, sessionID string) ([]domain.Interruption, error)
	InterruptionsForSegment(ctx context.Context, segmentID string) ([]domain.Interruption, error)
	GetSegment(ctx context.Context, segmentID string) (domain.Segment, error)
	UpdateSegmentSummary(ctx context.Context, segmentID, summary string) error
}

type SummaryRequest struct {
	AppID        string
	Owner        string
	WindowTitle  string
	DurationSecs float64
	Texts        []string
}

type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}
