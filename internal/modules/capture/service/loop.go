package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"focustrail/internal/modules/capture/domain"
	captureout "focustrail/internal/modules/capture/port/out"
	"focustrail/internal/platform/clock"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/phash"
)

type Config struct {
	Interval            time.Duration
	TickTimeout         time.Duration
	RecognitionCooldown time.Duration
	ChangeThreshold     int
	MinScreenshotBytes  int
}

func DefaultConfig() Config {
	return Config{
		Interval:            5 * time.Second,
		TickTimeout:         5 * time.Second,
		RecognitionCooldown: 20 * time.Second,
		ChangeThreshold:     8,
		MinScreenshotBytes:  1000,
	}
}

// Loop samples the foreground window once per interval while a session is
// active. Ticks run one at a time, so readings are written in timestamp order.
type Loop struct {
	cfg      Config
	provider captureout.Provider
	store    captureout.ReadingStore
	wall     clock.Clock
	mono     clock.Monotonic
	tickers  clock.TickerFactory
	logger   *slog.Logger
	metrics  *metrics

	mu  sync.Mutex
	run *loopRun
}

type loopRun struct {
	sessionID string
	stop      chan struct{}
	done      chan struct{}
}

func NewLoop(
	cfg Config,
	provider captureout.Provider,
	store captureout.ReadingStore,
	wall clock.Clock,
	mono clock.Monotonic,
	tickers clock.TickerFactory,
	logger *slog.Logger,
) *Loop {
	return &Loop{
		cfg:      cfg,
		provider: provider,
		store:    store,
		wall:     wall,
		mono:     mono,
		tickers:  tickers,
		logger:   logger,
		metrics:  newMetrics(),
	}
}

// Start launches the loop for sessionID. The first tick runs immediately.
func (l *Loop) Start(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run != nil {
		return apperrors.ErrCaptureRunning
	}
	r := &loopRun{sessionID: sessionID, stop: make(chan struct{}), done: make(chan struct{})}
	l.run = r
	l.metrics.reset(sessionID)
	go l.loop(r)
	l.logger.Info("capture.started", "session_id", sessionID, "provider", l.provider.Name(), "interval", l.cfg.Interval.String())
	return nil
}

// Stop signals the loop and waits for it to exit. An in-flight tick is
// allowed to finish; it is bounded by the tick timeout. Stop on an idle loop
// is a no-op.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	r := l.run
	l.run = nil
	l.mu.Unlock()
	if r == nil {
		return nil
	}
	close(r.stop)
	select {
	case <-r.done:
	case <-ctx.Done():
		return fmt.Errorf("wait for capture loop: %w", ctx.Err())
	}
	l.metrics.stopped()
	l.logger.Info("capture.stopped", "session_id", r.sessionID)
	return nil
}

func (l *Loop) Stats() domain.Stats {
	return l.metrics.snapshot()
}

func (l *Loop) Interval() time.Duration {
	return l.cfg.Interval
}

func (l *Loop) Provider() captureout.Provider {
	return l.provider
}

func (l *Loop) loop(r *loopRun) {
	defer close(r.done)
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("capture.panic", "session_id", r.sessionID, "panic", fmt.Sprint(rec))
		}
	}()
	ticker := l.tickers.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	gate := domain.NewRecognitionGate(l.cfg.RecognitionCooldown, l.cfg.ChangeThreshold)

	l.tick(r.sessionID, gate)
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C():
			select {
			case <-r.stop:
				return
			default:
			}
			l.tick(r.sessionID, gate)
		}
	}
}

func (l *Loop) tick(sessionID string, gate *domain.RecognitionGate) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.TickTimeout)
	defer cancel()

	started := l.mono.Now()
	timing := domain.TickTiming{At: l.wall.Now()}
	err := l.sample(ctx, sessionID, gate, &timing)
	timing.Total = l.mono.Now().Sub(started)

	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w after %s: %w", apperrors.ErrTickTimeout, l.cfg.TickTimeout, err)
		timing.Outcome = domain.TickTimeout
		timing.Err = err.Error()
		l.logger.Warn("capture.tick_timeout", "session_id", sessionID, "error", err)
	default:
		timing.Outcome = domain.TickFailed
		timing.Err = err.Error()
		l.logger.Warn("capture.tick_failed", "session_id", sessionID, "error", err)
	}
	l.metrics.record(timing)
	l.logger.Debug("capture.tick", "session_id", sessionID, "outcome", string(timing.Outcome), "total_ms", timing.Total.Milliseconds())
}

func (l *Loop) sample(ctx context.Context, sessionID string, gate *domain.RecognitionGate, timing *domain.TickTiming) error {
	reading := domain.Reading{SessionID: sessionID, Timestamp: timing.At}

	mark := l.mono.Now()
	win, err := await(ctx, func() (*domain.WindowInfo, error) { return l.provider.ActiveWindow(ctx) })
	timing.Window = l.mono.Now().Sub(mark)
	if err != nil {
		return fmt.Errorf("active window: %w", err)
	}
	if win == nil || win.AppID == "" {
		if win != nil {
			reading.Window = *win
		}
		reading.Window.AppID = domain.SystemSurfaceAppID
		timing.Outcome = domain.TickMetadataOnly
		return l.persist(ctx, reading)
	}
	reading.Window = *win

	mark = l.mono.Now()
	shot, err := await(ctx, func() ([]byte, error) { return l.provider.CaptureScreenshot(ctx, win.WindowID) })
	timing.Screenshot = l.mono.Now().Sub(mark)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if len(shot) < l.cfg.MinScreenshotBytes {
		timing.Outcome = domain.TickHidden
		return nil
	}

	mark = l.mono.Now()
	fp, err := phash.FromBytes(shot)
	timing.Hash = l.mono.Now().Sub(mark)
	if err != nil {
		l.logger.Warn("capture.fingerprint_failed", "session_id", sessionID, "error", err)
		timing.Outcome = domain.TickMetadataOnly
		return l.persist(ctx, reading)
	}
	reading.Fingerprint = string(fp)

	now := l.mono.Now()
	if run, why := gate.Decide(now, fp); run {
		gate.Attempted(now)
		l.metrics.recognitionRun()
		mark = l.mono.Now()
		rec, err := await(ctx, func() (domain.Recognition, error) { return l.provider.RunRecognition(ctx, shot) })
		timing.Recognition = l.mono.Now().Sub(mark)
		switch {
		case err == nil:
			gate.Succeeded(fp)
			reading.Recognition = &rec
			timing.Recognized = true
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("run recognition: %w", err)
		case errors.Is(err, apperrors.ErrRecognitionUnsupported):
			l.logger.Debug("capture.recognition_unsupported", "session_id", sessionID)
		default:
			l.metrics.recognitionFailed()
			l.logger.Warn("capture.recognition_failed", "session_id", sessionID, "reason", string(why), "error", err)
		}
	} else {
		l.metrics.recognitionSkipped()
	}

	timing.Outcome = domain.TickRecorded
	return l.persist(ctx, reading)
}

// persist is best-effort: a failed write is logged and counted, never fatal.
func (l *Loop) persist(ctx context.Context, reading domain.Reading) error {
	if _, err := l.store.InsertReading(ctx, reading); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		l.metrics.writeFailed()
		l.logger.Warn("capture.write_failed", "session_id", reading.SessionID, "error", err)
		return nil
	}
	l.metrics.readingWritten(reading.MetadataOnly())
	return nil
}

// await runs fn on its own goroutine so a provider that ignores ctx cannot
// hold the tick past its deadline.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v: v, err: err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
