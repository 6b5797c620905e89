package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"focustrail/internal/modules/segmentation/domain"
	segmentationout "focustrail/internal/modules/segmentation/port/out"
	apperrors "focustrail/internal/platform/errors"
)

type SegmentationService struct {
	cfg        domain.Config
	readings   segmentationout.ReadingSource
	repo       segmentationout.SegmentRepository
	summarizer segmentationout.Summarizer
	logger     *slog.Logger
}

func NewSegmentationService(
	cfg domain.Config,
	readings segmentationout.ReadingSource,
	repo segmentationout.SegmentRepository,
	summarizer segmentationout.Summarizer,
	logger *slog.Logger,
) *SegmentationService {
	return &SegmentationService{cfg: cfg, readings: readings, repo: repo, summarizer: summarizer, logger: logger}
}

// SegmentSession folds the session's readings, persists the result
// atomically and then back-fills each reading's segment id.
func (s *SegmentationService) SegmentSession(ctx context.Context, sessionID string) (domain.Result, error) {
	if sessionID == "" {
		return domain.Result{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	readings, err := s.readings.ReadingsForSession(ctx, sessionID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("load readings: %w", err)
	}
	result := domain.Run(sessionID, readings, s.cfg)
	if err := s.repo.ReplaceSegments(ctx, sessionID, result); err != nil {
		return domain.Result{}, fmt.Errorf("persist segments: %w", err)
	}
	if err := s.readings.AssignSegments(ctx, sessionID, result.Segments); err != nil {
		return domain.Result{}, fmt.Errorf("assign reading segments: %w", err)
	}
	s.logger.Info("segmentation.completed",
		"session_id", sessionID,
		"readings", len(readings),
		"segments", len(result.Segments),
		"interruptions", len(result.Interruptions),
	)
	return result, nil
}

func (s *SegmentationService) Segments(ctx context.Context, sessionID string) ([]domain.Segment, error) {
	return s.repo.SegmentsForSession(ctx, sessionID)
}

func (s *SegmentationService) Interruptions(ctx context.Context, sessionID string) ([]domain.Interruption, error) {
	return s.repo.InterruptionsForSession(ctx, sessionID)
}

func (s *SegmentationService) SegmentInterruptions(ctx context.Context, segmentID string) ([]domain.Interruption, error) {
	if _, err := s.repo.GetSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	return s.repo.InterruptionsForSegment(ctx, segmentID)
}

func (s *SegmentationService) Titles(ctx context.Context, segmentID string) ([]domain.TitleUsage, error) {
	seg, err := s.repo.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ReadingsForSession(ctx, seg.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return domain.Titles(seg, readings, s.cfg.Interval), nil
}

// Summarize asks the summarizer for a one-line description of every segment
// that has recognized text. It returns how many segments were summarized and
// how many were skipped for lack of text.
func (s *SegmentationService) Summarize(ctx context.Context, sessionID string) (int, int, error) {
	if s.summarizer == nil {
		return 0, 0, apperrors.ErrSummarizerDisabled
	}
	segments, err := s.repo.SegmentsForSession(ctx, sessionID)
	if err != nil {
		return 0, 0, err
	}
	readings, err := s.readings.ReadingsForSession(ctx, sessionID)
	if err != nil {
		return 0, 0, fmt.Errorf("load readings: %w", err)
	}
	done, skipped := 0, 0
	for _, seg := range segments {
		texts := domain.RecognizedTexts(seg, readings)
		if len(texts) == 0 {
			skipped++
			continue
		}
		summary, err := s.summarizer.Summarize(ctx, segmentationout.SummaryRequest{
			AppID:        seg.AppID,
			Owner:        seg.Owner,
			WindowTitle:  seg.WindowTitle,
			DurationSecs: seg.DurationSecs,
			Texts:        texts,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return done, skipped, err
			}
			s.logger.Warn("segmentation.summary_failed", "segment_id", seg.ID, "error", err)
			skipped++
			continue
		}
		if err := s.repo.UpdateSegmentSummary(ctx, seg.ID, summary); err != nil {
			return done, skipped, err
		}
		done++
	}
	return done, skipped, nil
}
