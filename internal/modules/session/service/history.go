package service

import (
	"context"
	"fmt"
	"strings"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	apperrors "focustrail/internal/platform/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
	topAppsPerRow   = 3
)

// History answers read-side questions about finished sessions.
type History struct {
	repo     sessionout.SessionRepository
	segments sessionout.SegmentSource
	reports  sessionout.ReportStore
	usage    sessionout.AppUsage
}

func NewHistory(repo sessionout.SessionRepository, segments sessionout.SegmentSource, reports sessionout.ReportStore, usage sessionout.AppUsage) *History {
	return &History{repo: repo, segments: segments, reports: reports, usage: usage}
}

func (h *History) List(ctx context.Context, limit, offset int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", apperrors.ErrInvalidInput)
	}
	sessions, err := h.repo.ListSessions(ctx, limit, offset)
	if err != nil || len(sessions) == 0 {
		return sessions, err
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	top, err := h.usage.TopApps(ctx, ids, topAppsPerRow)
	if err != nil {
		return nil, fmt.Errorf("top apps: %w", err)
	}
	for i := range sessions {
		sessions[i].TopApps = top[sessions[i].ID]
	}
	return sessions, nil
}

func (h *History) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Session{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return h.repo.GetSession(ctx, sessionID)
}

// Report renders a markdown note for a finished session and returns its path.
func (h *History) Report(ctx context.Context, sessionID string) (string, error) {
	session, err := h.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.Status == domain.StatusRunning {
		return "", fmt.Errorf("%w: session %s is still running", apperrors.ErrInvalidInput, sessionID)
	}
	segments, err := h.segments.ReportSegments(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load segments: %w", err)
	}
	return h.reports.Write(ctx, domain.Report{Session: session, Segments: segments})
}
