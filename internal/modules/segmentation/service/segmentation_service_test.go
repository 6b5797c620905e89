package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"focustrail/internal/modules/segmentation/domain"
	segmentationout "focustrail/internal/modules/segmentation/port/out"
	"focustrail/internal/modules/segmentation/service"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/logging"
)

type fakeReadings struct {
	readings []domain.Reading
	assigned []domain.Segment
	assignFn func() error
}

func (f *fakeReadings) ReadingsForSession(context.Context, string) ([]domain.Reading, error) {
	return f.readings, nil
}

func (f *fakeReadings) AssignSegments(_ context.Context, _ string, segments []domain.Segment) error {
	if f.assignFn != nil {
		if err := f.assignFn(); err != nil {
			return err
		}
	}
	f.assigned = segments
	return nil
}

type fakeRepo struct {
	result     domain.Result
	replaceErr error
	replaced   bool
	summaries  map[string]string
}

func (f *fakeRepo) ReplaceSegments(_ context.Context, _ string, result domain.Result) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.result = result
	f.replaced = true
	return nil
}

func (f *fakeRepo) SegmentsForSession(context.Context, string) ([]domain.Segment, error) {
	return f.result.Segments, nil
}

func (f *fakeRepo) InterruptionsForSession(context.Context, string) ([]domain.Interruption, error) {
	return f.result.Interruptions, nil
}

func (f *fakeRepo) InterruptionsForSegment(_ context.Context, segmentID string) ([]domain.Interruption, error) {
	var out []domain.Interruption
	for _, in := range f.result.Interruptions {
		if in.SegmentID == segmentID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSegment(_ context.Context, segmentID string) (domain.Segment, error) {
	for _, seg := range f.result.Segments {
		if seg.ID == segmentID {
			return seg, nil
		}
	}
	return domain.Segment{}, apperrors.ErrNotFound
}

func (f *fakeRepo) UpdateSegmentSummary(_ context.Context, segmentID, summary string) error {
	if f.summaries == nil {
		f.summaries = map[string]string{}
	}
	f.summaries[segmentID] = summary
	return nil
}

type fakeSummarizer struct {
	requests []segmentationout.SummaryRequest
}

func (f *fakeSummarizer) Summarize(_ context.Context, req segmentationout.SummaryRequest) (string, error) {
	f.requests = append(f.requests, req)
	return "working in " + req.AppID, nil
}

func readingsAt(apps ...string) []domain.Reading {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := make([]domain.Reading, 0, len(apps))
	for i, app := range apps {
		out = append(out, domain.Reading{ID: int64(i + 1), Timestamp: at.Add(time.Duration(i) * 5 * time.Second), AppID: app, Title: app + " title"})
	}
	return out
}

func TestSegmentSessionPersistsThenAssigns(t *testing.T) {
	t.Parallel()
	apps := []string{}
	for i := 0; i < 10; i++ {
		apps = append(apps, "org.editor")
	}
	readings := &fakeReadings{readings: readingsAt(apps...)}
	repo := &fakeRepo{}
	readings.assignFn = func() error {
		if !repo.replaced {
			return errors.New("assign before persist")
		}
		return nil
	}
	svc := service.NewSegmentationService(domain.DefaultConfig(), readings, repo, nil, logging.Discard())

	result, err := svc.SegmentSession(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("segment session: %v", err)
	}
	if len(result.Segments) != 1 || len(readings.assigned) != 1 {
		t.Fatalf("expected one persisted and assigned segment, got %+v", result)
	}
	if result.Segments[0].Confidence < 0.9 {
		t.Fatalf("single app session must be confident, got %.3f", result.Segments[0].Confidence)
	}
}

func TestSegmentSessionDoesNotAssignWhenPersistFails(t *testing.T) {
	t.Parallel()
	readings := &fakeReadings{readings: readingsAt("a", "a", "b")}
	repo := &fakeRepo{replaceErr: errors.New("disk full")}
	svc := service.NewSegmentationService(domain.DefaultConfig(), readings, repo, nil, logging.Discard())

	if _, err := svc.SegmentSession(context.Background(), "sess-1"); err == nil {
		t.Fatalf("expected persist failure")
	}
	if readings.assigned != nil {
		t.Fatalf("reading segment ids must not be touched after a failed persist")
	}
	if _, err := svc.SegmentSession(context.Background(), ""); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSummarizeSkipsSegmentsWithoutText(t *testing.T) {
	t.Parallel()
	rs := readingsAt("org.editor", "org.editor", "org.editor")
	rs[1].HasRecognition = true
	rs[1].RecognizedText = "func main()"
	readings := &fakeReadings{readings: rs}
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{}
	svc := service.NewSegmentationService(domain.DefaultConfig(), readings, repo, summarizer, logging.Discard())
	if _, err := svc.SegmentSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("segment session: %v", err)
	}
	done, skipped, err := svc.Summarize(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if done != 1 || skipped != 0 {
		t.Fatalf("expected one summary, got done=%d skipped=%d", done, skipped)
	}
	if len(summarizer.requests) != 1 || summarizer.requests[0].Texts[0] != "func main()" {
		t.Fatalf("unexpected summary request: %+v", summarizer.requests)
	}
	if repo.summaries[repo.result.Segments[0].ID] != "working in org.editor" {
		t.Fatalf("summary not stored: %+v", repo.summaries)
	}

	disabled := service.NewSegmentationService(domain.DefaultConfig(), readings, repo, nil, logging.Discard())
	if _, _, err := disabled.Summarize(context.Background(), "sess-1"); !errors.Is(err, apperrors.ErrSummarizerDisabled) {
		t.Fatalf("expected summarizer disabled, got %v", err)
	}
}
