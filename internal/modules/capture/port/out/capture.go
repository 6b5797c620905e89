package out

import (
	"context"

	"focustrail/internal/modules/capture/domain"
)

// Provider is the narrow window-system capability the loop samples. All
// native access stays behind it.
type Provider interface {
	Name() string
	// ActiveWindow returns nil without error when nothing has focus.
	ActiveWindow(ctx context.Context) (*domain.WindowInfo, error)
	CaptureScreenshot(ctx context.Context, windowID uint32) ([]byte, error)
	RunRecognition(ctx context.Context, image []byte) (domain.Recognition, error)
}

type ReadingStore interface {
	InsertReading(ctx context.Context, reading domain.Reading) (int64, error)
	ReadingsForSession(ctx context.Context, sessionID string) ([]domain.Reading, error)
	AssignSegments(ctx context.Context, sessionID string, spans []domain.SegmentSpan) error
	// AppUsage returns per-app reading counts for each listed session,
	// excluding system-surface placeholders.
	AppUsage(ctx context.Context, sessionIDs []string) ([]domain.AppUsage, error)
}
