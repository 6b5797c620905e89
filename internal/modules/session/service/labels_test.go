package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"focustrail/internal/modules/session/domain"
	"focustrail/internal/modules/session/service"
	"focustrail/internal/platform/clock"
	apperrors "focustrail/internal/platform/errors"
)

type memLabels struct {
	labels   map[string]domain.Label
	assigned map[string]string
}

func newMemLabels() *memLabels {
	return &memLabels{labels: map[string]domain.Label{}, assigned: map[string]string{}}
}

func (m *memLabels) CreateLabel(_ context.Context, l domain.Label) (domain.Label, error) {
	m.labels[l.ID] = l
	return l, nil
}
func (m *memLabels) ListLabels(context.Context) ([]domain.Label, error) {
	var out []domain.Label
	for _, l := range m.labels {
		out = append(out, l)
	}
	return out, nil
}
func (m *memLabels) GetLabel(_ context.Context, id string) (domain.Label, error) {
	l, ok := m.labels[id]
	if !ok {
		return domain.Label{}, apperrors.ErrNotFound
	}
	return l, nil
}
func (m *memLabels) UpdateLabel(_ context.Context, l domain.Label) error {
	m.labels[l.ID] = l
	return nil
}
func (m *memLabels) DeleteLabel(_ context.Context, id string) error {
	delete(m.labels, id)
	return nil
}
func (m *memLabels) SetSessionLabel(_ context.Context, sessionID, labelID string, _ time.Time) error {
	m.assigned[sessionID] = labelID
	return nil
}

func TestLabelsCreateNormalizes(t *testing.T) {
	t.Parallel()
	repo := newMemLabels()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	labels := service.NewLabels(repo, clock.NewManual(now), &seqIDs{})

	l, err := labels.Create(context.Background(), "  Deep work ", "#A0B1C2")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.ID != "sess-1" || l.Name != "Deep work" || l.Color != "#a0b1c2" || !l.CreatedAt.Equal(now) {
		t.Fatalf("unexpected label: %+v", l)
	}
	for _, tc := range []struct{ name, color string }{
		{"   ", "#000000"},
		{"ok", "red"},
		{"ok", "#12345"},
		{"ok", "#GGGGGG"},
	} {
		if _, err := labels.Create(context.Background(), tc.name, tc.color); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("create(%q, %q): expected ErrInvalidInput, got %v", tc.name, tc.color, err)
		}
	}
}

func TestLabelsUpdateChangesOnlyGivenFields(t *testing.T) {
	t.Parallel()
	repo := newMemLabels()
	clk := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	labels := service.NewLabels(repo, clk, &seqIDs{})
	l, err := labels.Create(context.Background(), "Reading", "#112233")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(time.Minute)
	color := "#445566"
	got, err := labels.Update(context.Background(), l.ID, nil, &color)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Reading" || got.Color != "#445566" || !got.UpdatedAt.After(l.UpdatedAt) {
		t.Fatalf("unexpected update: %+v", got)
	}
	if _, err := labels.Update(context.Background(), l.ID, nil, nil); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty patch, got %v", err)
	}
	blank := " "
	if _, err := labels.Update(context.Background(), l.ID, &blank, nil); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
	if _, err := labels.Update(context.Background(), "missing", &color, nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLabelsAssign(t *testing.T) {
	t.Parallel()
	repo := newMemLabels()
	labels := service.NewLabels(repo, clock.NewManual(time.Now()), &seqIDs{})

	if err := labels.Assign(context.Background(), "s-1", " lbl-1 "); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if repo.assigned["s-1"] != "lbl-1" {
		t.Fatalf("assigned = %q", repo.assigned["s-1"])
	}
	if err := labels.Assign(context.Background(), "", "lbl-1"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := labels.Delete(context.Background(), ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
