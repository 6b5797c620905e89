package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"focustrail/internal/modules/session/domain"
	"focustrail/internal/modules/session/service"
	apperrors "focustrail/internal/platform/errors"
)

type pagingRepo struct {
	*fakeRepo
	limit, offset int
}

func (r *pagingRepo) ListSessions(_ context.Context, limit, offset int) ([]domain.Session, error) {
	r.limit, r.offset = limit, offset
	return nil, nil
}

type staticSegments struct {
	segments []domain.ReportSegment
	err      error
}

func (s staticSegments) ReportSegments(context.Context, string) ([]domain.ReportSegment, error) {
	return s.segments, s.err
}

type captureReports struct {
	written []domain.Report
}

func (c *captureReports) Write(_ context.Context, report domain.Report) (string, error) {
	c.written = append(c.written, report)
	return "/reports/" + report.Session.ID + ".md", nil
}

type fakeUsage struct {
	top   map[string][]domain.TopApp
	err   error
	ids   []string
	limit int
}

func (f *fakeUsage) TopApps(_ context.Context, sessionIDs []string, limit int) (map[string][]domain.TopApp, error) {
	f.ids, f.limit = sessionIDs, limit
	return f.top, f.err
}

type listedRepo struct {
	*fakeRepo
	sessions []domain.Session
}

func (r listedRepo) ListSessions(context.Context, int, int) ([]domain.Session, error) {
	return r.sessions, nil
}

func TestHistoryListAttachesTopApps(t *testing.T) {
	repo := listedRepo{fakeRepo: newFakeRepo(), sessions: []domain.Session{{ID: "s-2"}, {ID: "s-1"}}}
	usage := &fakeUsage{top: map[string][]domain.TopApp{
		"s-2": {{AppID: "code", DurationSecs: 600, Percentage: 75}, {AppID: "term", DurationSecs: 200, Percentage: 25}},
	}}
	h := service.NewHistory(repo, staticSegments{}, &captureReports{}, usage)

	sessions, err := h.List(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if usage.limit != 3 || len(usage.ids) != 2 || usage.ids[0] != "s-2" || usage.ids[1] != "s-1" {
		t.Fatalf("unexpected usage query: ids=%v limit=%d", usage.ids, usage.limit)
	}
	if len(sessions[0].TopApps) != 2 || sessions[0].TopApps[0].AppID != "code" {
		t.Fatalf("unexpected top apps for s-2: %+v", sessions[0].TopApps)
	}
	if sessions[1].TopApps != nil {
		t.Fatalf("s-1 has no readings, got %+v", sessions[1].TopApps)
	}
}

func TestHistoryListTopAppsError(t *testing.T) {
	repo := listedRepo{fakeRepo: newFakeRepo(), sessions: []domain.Session{{ID: "s-1"}}}
	boom := errors.New("boom")
	h := service.NewHistory(repo, staticSegments{}, &captureReports{}, &fakeUsage{err: boom})
	if _, err := h.List(context.Background(), 10, 0); !errors.Is(err, boom) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestHistoryListClampsPageSize(t *testing.T) {
	repo := &pagingRepo{fakeRepo: newFakeRepo()}
	h := service.NewHistory(repo, staticSegments{}, &captureReports{}, &fakeUsage{})

	if _, err := h.List(context.Background(), 0, 0); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.limit != 20 {
		t.Fatalf("default limit = %d, want 20", repo.limit)
	}
	if _, err := h.List(context.Background(), 5000, 40); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.limit != 200 || repo.offset != 40 {
		t.Fatalf("limit/offset = %d/%d, want 200/40", repo.limit, repo.offset)
	}
	if _, err := h.List(context.Background(), 10, -1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative offset, got %v", err)
	}
}

func TestHistoryGetRequiresID(t *testing.T) {
	h := service.NewHistory(newFakeRepo(), staticSegments{}, &captureReports{}, &fakeUsage{})
	if _, err := h.Get(context.Background(), "  "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := h.Get(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryReport(t *testing.T) {
	repo := newFakeRepo()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	_ = repo.InsertSession(context.Background(), domain.Session{ID: "done", StartedAt: at, Status: domain.StatusCompleted, Mode: domain.ModeCountdown})
	_ = repo.InsertSession(context.Background(), domain.Session{ID: "live", StartedAt: at, Status: domain.StatusRunning, Mode: domain.ModeCountdown})

	segments := []domain.ReportSegment{{ID: "seg-1", AppID: "code", Start: at, End: at.Add(time.Minute), DurationSecs: 60}}
	reports := &captureReports{}
	h := service.NewHistory(repo, staticSegments{segments: segments}, reports, &fakeUsage{})

	path, err := h.Report(context.Background(), "done")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if path != "/reports/done.md" {
		t.Fatalf("path = %q", path)
	}
	if len(reports.written) != 1 || len(reports.written[0].Segments) != 1 || reports.written[0].Session.ID != "done" {
		t.Fatalf("unexpected report: %+v", reports.written)
	}

	if _, err := h.Report(context.Background(), "live"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for running session, got %v", err)
	}
}

func TestHistoryReportSegmentError(t *testing.T) {
	repo := newFakeRepo()
	_ = repo.InsertSession(context.Background(), domain.Session{ID: "done", Status: domain.StatusCompleted})
	boom := errors.New("boom")
	h := service.NewHistory(repo, staticSegments{err: boom}, &captureReports{}, &fakeUsage{})
	if _, err := h.Report(context.Background(), "done"); !errors.Is(err, boom) {
		t.Fatalf("expected segment error, got %v", err)
	}
}
