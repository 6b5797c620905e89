package out_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	segmentationout "focustrail/internal/modules/segmentation/adapter/out"
	"focustrail/internal/modules/segmentation/domain"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "focustrail.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	err = s.Do(context.Background(), func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `INSERT INTO sessions(id, started_at, status, mode, target_ms, created_at, updated_at)
VALUES('sess-1', 0, 'completed', 'countdown', 60000, 0, 0)`)
		return err
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func sampleResult() domain.Result {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return domain.Result{
		Segments: []domain.Segment{
			{
				ID: "seg-1", SessionID: "sess-1", Start: at, End: at.Add(70 * time.Second), LastReadingAt: at.Add(65 * time.Second),
				DurationSecs: 70, AppID: "org.editor", Owner: "editor", WindowTitle: "main.go", ReadingCount: 14, UniqueFingerprints: 2,
				Scores: domain.Scores{Duration: 0.27, Stability: 0.93, Visual: 0.86, Recognition: 0.5}, Confidence: 0.66, Transitioning: true, Type: domain.SegmentDistracted,
			},
			{
				ID: "seg-2", SessionID: "sess-1", Start: at.Add(70 * time.Second), End: at.Add(100 * time.Second), LastReadingAt: at.Add(95 * time.Second),
				DurationSecs: 30, AppID: "org.browser", ReadingCount: 6,
			},
		},
		Interruptions: []domain.Interruption{
			{ID: "int-1", SegmentID: "seg-1", AppID: "org.chat", Owner: "chat", Timestamp: at.Add(30 * time.Second), DurationSecs: 5},
		},
	}
}

func TestReplaceSegmentsRoundTrip(t *testing.T) {
	t.Parallel()
	repo := segmentationout.NewSQLiteSegmentRepository(seededStore(t))
	ctx := context.Background()
	want := sampleResult()

	if err := repo.ReplaceSegments(ctx, "sess-1", want); err != nil {
		t.Fatalf("replace segments: %v", err)
	}
	segments, err := repo.SegmentsForSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected two segments, got %d", len(segments))
	}
	got := segments[0]
	if got.ID != "seg-1" || !got.End.Equal(want.Segments[0].End) || !got.Transitioning || got.Type != domain.SegmentDistracted || got.Scores.Stability != 0.93 {
		t.Fatalf("segment not round-tripped: %+v", got)
	}

	items, err := repo.InterruptionsForSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list interruptions: %v", err)
	}
	if len(items) != 1 || items[0].AppID != "org.chat" || !items[0].Timestamp.Equal(want.Interruptions[0].Timestamp) {
		t.Fatalf("unexpected interruptions: %+v", items)
	}
	bySegment, err := repo.InterruptionsForSegment(ctx, "seg-2")
	if err != nil {
		t.Fatalf("interruptions for segment: %v", err)
	}
	if len(bySegment) != 0 {
		t.Fatalf("expected no interruptions on seg-2, got %d", len(bySegment))
	}
}

func TestReplaceSegmentsIsAtomic(t *testing.T) {
	t.Parallel()
	repo := segmentationout.NewSQLiteSegmentRepository(seededStore(t))
	ctx := context.Background()
	if err := repo.ReplaceSegments(ctx, "sess-1", sampleResult()); err != nil {
		t.Fatalf("replace segments: %v", err)
	}

	broken := sampleResult()
	broken.Segments[0].ID = "seg-new"
	broken.Interruptions[0].SegmentID = "seg-missing"
	err := repo.ReplaceSegments(ctx, "sess-1", broken)
	if err == nil || !strings.Contains(err.Error(), "int-1") {
		t.Fatalf("expected foreign key failure on interruption, got %v", err)
	}

	segments, err := repo.SegmentsForSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segments) != 2 || segments[0].ID != "seg-1" {
		t.Fatalf("failed replace must leave previous rows intact, got %+v", segments)
	}
}

func TestReplaceSegmentsSupersedesPreviousRun(t *testing.T) {
	t.Parallel()
	repo := segmentationout.NewSQLiteSegmentRepository(seededStore(t))
	ctx := context.Background()
	if err := repo.ReplaceSegments(ctx, "sess-1", sampleResult()); err != nil {
		t.Fatalf("replace segments: %v", err)
	}
	if err := repo.ReplaceSegments(ctx, "sess-1", sampleResult()); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	items, _ := repo.InterruptionsForSession(ctx, "sess-1")
	if len(items) != 1 {
		t.Fatalf("expected rerun to replace interruptions, got %d", len(items))
	}
}

func TestSummaryUpdateAndMissingSegment(t *testing.T) {
	t.Parallel()
	repo := segmentationout.NewSQLiteSegmentRepository(seededStore(t))
	ctx := context.Background()
	if err := repo.ReplaceSegments(ctx, "sess-1", sampleResult()); err != nil {
		t.Fatalf("replace segments: %v", err)
	}
	if err := repo.UpdateSegmentSummary(ctx, "seg-1", "Editing the capture loop"); err != nil {
		t.Fatalf("update summary: %v", err)
	}
	seg, err := repo.GetSegment(ctx, "seg-1")
	if err != nil {
		t.Fatalf("get segment: %v", err)
	}
	if seg.Summary != "Editing the capture loop" {
		t.Fatalf("unexpected summary %q", seg.Summary)
	}
	if _, err := repo.GetSegment(ctx, "nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.UpdateSegmentSummary(ctx, "nope", "x"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}
