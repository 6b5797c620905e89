package in

import (
	"context"

	"focustrail/internal/modules/capture/dto"
	capturein "focustrail/internal/modules/capture/port/in"
)

type CLIHandler struct {
	usecase capturein.Usecase
}

func NewCLIHandler(usecase capturein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Readings(ctx context.Context, sessionID string) ([]dto.ReadingOutput, error) {
	return h.usecase.Readings(ctx, sessionID)
}

func (h CLIHandler) SampleOnce(ctx context.Context) (dto.SampleOutput, error) {
	return h.usecase.SampleOnce(ctx)
}
