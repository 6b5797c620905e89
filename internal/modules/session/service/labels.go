package service

import (
	"context"
	"fmt"
	"strings"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	"focustrail/internal/platform/clock"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/id"
)

// Labels manages session labels. It runs without the daemon because labels
// live only in the database.
type Labels struct {
	repo  sessionout.LabelRepository
	clock clock.Clock
	ids   id.Generator
}

func NewLabels(repo sessionout.LabelRepository, clk clock.Clock, ids id.Generator) *Labels {
	return &Labels{repo: repo, clock: clk, ids: ids}
}

func (l *Labels) Create(ctx context.Context, name, color string) (domain.Label, error) {
	name, err := domain.NormalizeLabelName(name)
	if err != nil {
		return domain.Label{}, err
	}
	color, err = domain.NormalizeLabelColor(color)
	if err != nil {
		return domain.Label{}, err
	}
	now := l.clock.Now()
	return l.repo.CreateLabel(ctx, domain.Label{ID: l.ids.New(), Name: name, Color: color, CreatedAt: now, UpdatedAt: now})
}

func (l *Labels) List(ctx context.Context) ([]domain.Label, error) {
	return l.repo.ListLabels(ctx)
}

// Update changes whichever of name and color is non-nil.
func (l *Labels) Update(ctx context.Context, labelID string, name, color *string) (domain.Label, error) {
	if name == nil && color == nil {
		return domain.Label{}, fmt.Errorf("%w: nothing to update", apperrors.ErrInvalidInput)
	}
	label, err := l.repo.GetLabel(ctx, labelID)
	if err != nil {
		return domain.Label{}, err
	}
	if name != nil {
		if label.Name, err = domain.NormalizeLabelName(*name); err != nil {
			return domain.Label{}, err
		}
	}
	if color != nil {
		if label.Color, err = domain.NormalizeLabelColor(*color); err != nil {
			return domain.Label{}, err
		}
	}
	label.UpdatedAt = l.clock.Now()
	if err := l.repo.UpdateLabel(ctx, label); err != nil {
		return domain.Label{}, err
	}
	return label, nil
}

func (l *Labels) Delete(ctx context.Context, labelID string) error {
	if strings.TrimSpace(labelID) == "" {
		return fmt.Errorf("%w: label id is required", apperrors.ErrInvalidInput)
	}
	return l.repo.DeleteLabel(ctx, labelID)
}

// Assign tags a session with labelID, or clears its label when labelID is empty.
func (l *Labels) Assign(ctx context.Context, sessionID, labelID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return l.repo.SetSessionLabel(ctx, sessionID, strings.TrimSpace(labelID), l.clock.Now())
}
