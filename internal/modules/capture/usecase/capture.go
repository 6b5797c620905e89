package usecase

import (
	"context"
	"errors"
	"fmt"

	"focustrail/internal/modules/capture/domain"
	"focustrail/internal/modules/capture/dto"
	capturein "focustrail/internal/modules/capture/port/in"
	captureout "focustrail/internal/modules/capture/port/out"
	"focustrail/internal/modules/capture/service"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/phash"
)

type Interactor struct {
	loop  *service.Loop
	store captureout.ReadingStore
}

func NewInteractor(loop *service.Loop, store captureout.ReadingStore) capturein.Usecase {
	return &Interactor{loop: loop, store: store}
}

func (i *Interactor) Start(ctx context.Context, sessionID string) error {
	return i.loop.Start(ctx, sessionID)
}

func (i *Interactor) Stop(ctx context.Context) error {
	return i.loop.Stop(ctx)
}

func (i *Interactor) Stats(context.Context) dto.StatsOutput {
	stats := i.loop.Stats()
	out := dto.StatsOutput{
		SessionID:           stats.SessionID,
		Running:             stats.Running,
		Ticks:               stats.Ticks,
		Readings:            stats.Readings,
		MetadataOnly:        stats.MetadataOnly,
		Hidden:              stats.Hidden,
		Failures:            stats.Failures,
		Timeouts:            stats.Timeouts,
		WriteFailures:       stats.WriteFailures,
		RecognitionRuns:     stats.RecognitionRuns,
		RecognitionSkips:    stats.RecognitionSkips,
		RecognitionFailures: stats.RecognitionFailures,
		LastError:           stats.LastError,
		Recent:              make([]dto.TickOutput, 0, len(stats.Recent)),
	}
	for _, t := range stats.Recent {
		out.Recent = append(out.Recent, dto.TickOutput{
			At:          t.At,
			Outcome:     string(t.Outcome),
			Total:       t.Total,
			Window:      t.Window,
			Screenshot:  t.Screenshot,
			Hash:        t.Hash,
			Recognition: t.Recognition,
			Recognized:  t.Recognized,
			Err:         t.Err,
		})
	}
	return out
}

func (i *Interactor) Readings(ctx context.Context, sessionID string) ([]dto.ReadingOutput, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	readings, err := i.store.ReadingsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReadingOutput, 0, len(readings))
	for _, r := range readings {
		item := dto.ReadingOutput{
			ID:          r.ID,
			SessionID:   r.SessionID,
			Timestamp:   r.Timestamp,
			WindowID:    r.Window.WindowID,
			AppID:       r.Window.AppID,
			Title:       r.Window.Title,
			Owner:       r.Window.Owner,
			Fingerprint: r.Fingerprint,
			SegmentID:   r.SegmentID,
		}
		if r.Recognition != nil {
			item.HasRecognition = true
			item.RecognizedText = r.Recognition.Text
			item.RecognitionConfidence = r.Recognition.Confidence
			item.WordCount = r.Recognition.WordCount
		}
		out = append(out, item)
	}
	return out, nil
}

func (i *Interactor) AssignSegments(ctx context.Context, sessionID string, spans []dto.SegmentSpan) error {
	converted := make([]domain.SegmentSpan, 0, len(spans))
	for _, s := range spans {
		if !s.End.After(s.Start) {
			return fmt.Errorf("%w: segment %s has an empty span", apperrors.ErrInvalidInput, s.SegmentID)
		}
		converted = append(converted, domain.SegmentSpan{SegmentID: s.SegmentID, Start: s.Start, End: s.End})
	}
	return i.store.AssignSegments(ctx, sessionID, converted)
}

// TopApps credits each reading with one capture interval. Percentages are
// of the session's non-placeholder readings.
func (i *Interactor) TopApps(ctx context.Context, sessionIDs []string, limit int) (map[string][]dto.AppUsageOutput, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidInput)
	}
	usage, err := i.store.AppUsage(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	totals := map[string]int{}
	for _, u := range usage {
		totals[u.SessionID] += u.Readings
	}
	interval := i.loop.Interval().Seconds()
	out := make(map[string][]dto.AppUsageOutput, len(totals))
	for _, u := range usage {
		if len(out[u.SessionID]) >= limit {
			continue
		}
		out[u.SessionID] = append(out[u.SessionID], dto.AppUsageOutput{
			AppID:        u.AppID,
			Owner:        u.Owner,
			DurationSecs: float64(u.Readings) * interval,
			Percentage:   100 * float64(u.Readings) / float64(totals[u.SessionID]),
		})
	}
	return out, nil
}

// SampleOnce runs one sample outside any session so the sensing stack can be
// checked from the command line. Nothing is persisted.
func (i *Interactor) SampleOnce(ctx context.Context) (dto.SampleOutput, error) {
	p := i.loop.Provider()
	out := dto.SampleOutput{Provider: p.Name()}
	win, err := p.ActiveWindow(ctx)
	if err != nil {
		return out, fmt.Errorf("active window: %w", err)
	}
	if win == nil {
		return out, nil
	}
	out.HasWindow = true
	out.AppID = win.AppID
	out.Title = win.Title
	out.Owner = win.Owner

	shot, err := p.CaptureScreenshot(ctx, win.WindowID)
	if err != nil {
		return out, fmt.Errorf("capture screenshot: %w", err)
	}
	out.ScreenshotBytes = len(shot)
	if fp, err := phash.FromBytes(shot); err == nil {
		out.Fingerprint = string(fp)
	}
	rec, err := p.RunRecognition(ctx, shot)
	switch {
	case err == nil:
		out.Recognition = rec.Text
	case errors.Is(err, apperrors.ErrRecognitionUnsupported):
		out.Recognition = "unsupported"
	default:
		return out, fmt.Errorf("run recognition: %w", err)
	}
	return out, nil
}
