package out

import (
	"context"

	"focustrail/internal/modules/capture/domain"
	captureout "focustrail/internal/modules/capture/port/out"
	apperrors "focustrail/internal/platform/errors"
)

// NoopProvider reports no focused window. Sessions still track time; every
// reading is a system surface.
type NoopProvider struct{}

var _ captureout.Provider = NoopProvider{}

func (NoopProvider) Name() string { return "none" }

func (NoopProvider) ActiveWindow(context.Context) (*domain.WindowInfo, error) {
	return nil, nil
}

func (NoopProvider) CaptureScreenshot(context.Context, uint32) ([]byte, error) {
	return nil, nil
}

func (NoopProvider) RunRecognition(context.Context, []byte) (domain.Recognition, error) {
	return domain.Recognition{}, apperrors.ErrRecognitionUnsupported
}
