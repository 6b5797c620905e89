package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	"focustrail/internal/platform/clock"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/id"
)

type ControllerConfig struct {
	TickInterval   time.Duration
	HeartbeatEvery int
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{TickInterval: time.Second, HeartbeatEvery: 10}
}

type tickRun struct {
	stop chan struct{}
	done chan struct{}
}

// claimed is the state a finishing operation took over from the timer.
type claimed struct {
	state domain.State
	run   *tickRun
}

// Controller owns the session lifecycle: idle, running, then stopped while
// the session is finalized, and back to idle.
type Controller struct {
	cfg       ControllerConfig
	repo      sessionout.SessionRepository
	capture   sessionout.Capture
	segmenter sessionout.Segmenter
	notifier  sessionout.Notifier
	wall      clock.Clock
	mono      clock.Monotonic
	tickers   clock.TickerFactory
	ids       id.Generator
	logger    *slog.Logger

	mu    sync.Mutex
	timer domain.Timer
	run   *tickRun
}

func NewController(
	cfg ControllerConfig,
	repo sessionout.SessionRepository,
	capture sessionout.Capture,
	segmenter sessionout.Segmenter,
	notifier sessionout.Notifier,
	wall clock.Clock,
	mono clock.Monotonic,
	tickers clock.TickerFactory,
	ids id.Generator,
	logger *slog.Logger,
) *Controller {
	def := DefaultControllerConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = def.HeartbeatEvery
	}
	return &Controller{
		cfg:       cfg,
		repo:      repo,
		capture:   capture,
		segmenter: segmenter,
		notifier:  notifier,
		wall:      wall,
		mono:      mono,
		tickers:   tickers,
		ids:       ids,
		logger:    logger,
	}
}

func (c *Controller) Start(ctx context.Context, targetMS int64, mode domain.Mode, label string) (domain.State, error) {
	if mode == "" {
		mode = domain.ModeCountdown
	}
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return domain.State{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if targetMS < 0 || (mode.HasDeadline() && targetMS == 0) {
		return domain.State{}, fmt.Errorf("%w: target must be greater than zero for %s sessions", apperrors.ErrInvalidInput, mode)
	}

	c.mu.Lock()
	if c.timer.Phase() != domain.PhaseIdle {
		c.mu.Unlock()
		return domain.State{}, apperrors.ErrActiveSessionExists
	}

	sessionID := c.ids.New()
	startedAt := c.wall.Now()
	if mode.Tracked() {
		session := domain.Session{
			ID:        sessionID,
			StartedAt: startedAt,
			Status:    domain.StatusRunning,
			Mode:      mode,
			Label:     label,
			TargetMS:  targetMS,
			CreatedAt: startedAt,
			UpdatedAt: startedAt,
		}
		if err := c.repo.InsertSession(ctx, session); err != nil {
			c.mu.Unlock()
			return domain.State{}, fmt.Errorf("insert session: %w", err)
		}
		if err := c.capture.Start(ctx, sessionID); err != nil {
			if rbErr := c.repo.MarkSessionStatus(ctx, sessionID, domain.StatusCancelled, 0, startedAt, startedAt); rbErr != nil {
				c.logger.Warn("session.rollback_failed", "session_id", sessionID, "error", rbErr)
			}
			c.mu.Unlock()
			return domain.State{}, fmt.Errorf("start capture: %w", err)
		}
	}

	c.timer.Begin(sessionID, mode, label, targetMS, startedAt, c.mono.Now())
	run := &tickRun{stop: make(chan struct{}), done: make(chan struct{})}
	c.run = run
	go c.tick(context.WithoutCancel(ctx), run, c.tickers.NewTicker(c.cfg.TickInterval))
	state := c.timer.Snapshot(c.mono.Now())
	c.mu.Unlock()

	c.logger.Info("session.started", "session_id", sessionID, "mode", mode, "target_ms", targetMS, "label", label)
	c.emit(domain.EventStateChanged, state, nil)
	return state, nil
}

// End completes the running session and segments it. The completed status is
// committed before segmentation, so a segmentation error is returned together
// with the finalized session.
func (c *Controller) End(ctx context.Context) (domain.Session, error) {
	cl, ok := c.claim()
	if !ok {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	return c.complete(ctx, cl, false)
}

func (c *Controller) Cancel(ctx context.Context) (domain.State, error) {
	cl, ok := c.claim()
	if !ok {
		return domain.State{}, apperrors.ErrNoActiveSession
	}
	_, err := c.finish(ctx, cl, false, domain.StatusCancelled)
	c.reset()
	c.logger.Info("session.cancelled", "session_id", cl.state.SessionID, "active_ms", cl.state.ActiveMS)
	if err != nil {
		return cl.state, fmt.Errorf("mark session cancelled: %w", err)
	}
	return cl.state, nil
}

// Shutdown marks a still-running session interrupted so a graceful daemon
// exit leaves the same trace as a crash followed by Recover.
func (c *Controller) Shutdown(ctx context.Context) error {
	cl, ok := c.claim()
	if !ok {
		return nil
	}
	_, err := c.finish(ctx, cl, false, domain.StatusInterrupted)
	c.reset()
	c.logger.Info("session.interrupted", "session_id", cl.state.SessionID, "active_ms", cl.state.ActiveMS)
	if err != nil {
		return fmt.Errorf("mark session interrupted: %w", err)
	}
	return nil
}

// Recover marks every session left running by a previous process as
// interrupted, stopped at now.
func (c *Controller) Recover(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer.Phase() != domain.PhaseIdle {
		return 0, apperrors.ErrActiveSessionExists
	}
	recovered := 0
	for {
		session, err := c.repo.GetIncompleteSession(ctx)
		if errors.Is(err, apperrors.ErrNotFound) {
			return recovered, nil
		}
		if err != nil {
			return recovered, fmt.Errorf("load incomplete session: %w", err)
		}
		if err := c.repo.MarkSessionStatus(ctx, session.ID, domain.StatusInterrupted, session.ActiveMS, now, now); err != nil {
			return recovered, fmt.Errorf("mark session interrupted: %w", err)
		}
		recovered++
		c.logger.Warn("session.recovered", "session_id", session.ID, "active_ms", session.ActiveMS)
	}
}

func (c *Controller) Snapshot() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.Snapshot(c.mono.Now())
}

// claim moves a running timer to stopped and hands its ticker to the caller.
// Exactly one of End, Cancel, Shutdown or the deadline can win.
func (c *Controller) claim() (claimed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer.Phase() != domain.PhaseRunning {
		return claimed{}, false
	}
	now := c.mono.Now()
	state := c.timer.Snapshot(now)
	state.ActiveMS = c.timer.Stop(now)
	state.Phase = domain.PhaseStopped
	state.RemainingMS = 0
	run := c.run
	c.run = nil
	return claimed{state: state, run: run}, true
}

func (c *Controller) reset() {
	c.mu.Lock()
	c.timer.Reset()
	state := c.timer.Snapshot(c.mono.Now())
	c.mu.Unlock()
	c.emit(domain.EventStateChanged, state, nil)
}

// finish stops the ticker and capture, then records the final status.
func (c *Controller) finish(ctx context.Context, cl claimed, fromTicker bool, status domain.Status) (time.Time, error) {
	if cl.run != nil {
		close(cl.run.stop)
		if !fromTicker {
			<-cl.run.done
		}
	}
	if cl.state.Mode.Tracked() {
		if err := c.capture.Stop(ctx); err != nil {
			c.logger.Warn("session.capture_stop_failed", "session_id", cl.state.SessionID, "error", err)
		}
	}
	stoppedAt := c.wall.Now()
	if !cl.state.Mode.Tracked() {
		return stoppedAt, nil
	}
	return stoppedAt, c.repo.MarkSessionStatus(ctx, cl.state.SessionID, status, cl.state.ActiveMS, stoppedAt, stoppedAt)
}

func (c *Controller) complete(ctx context.Context, cl claimed, fromTicker bool) (domain.Session, error) {
	stoppedAt, markErr := c.finish(ctx, cl, fromTicker, domain.StatusCompleted)
	session := domain.Session{
		ID:        cl.state.SessionID,
		StartedAt: cl.state.StartedAt,
		StoppedAt: stoppedAt,
		Status:    domain.StatusCompleted,
		Mode:      cl.state.Mode,
		Label:     cl.state.Label,
		TargetMS:  cl.state.TargetMS,
		ActiveMS:  cl.state.ActiveMS,
		CreatedAt: cl.state.StartedAt,
		UpdatedAt: stoppedAt,
	}
	if markErr != nil {
		c.reset()
		return session, fmt.Errorf("mark session completed: %w", markErr)
	}

	var segErr error
	if cl.state.Mode.Tracked() {
		summary, err := c.segmenter.SegmentSession(ctx, session.ID)
		if err != nil {
			segErr = err
			c.logger.Error("session.segmentation_failed", "session_id", session.ID, "error", err)
		} else {
			c.logger.Info("session.segmented", "session_id", session.ID, "segments", summary.Segments, "interruptions", summary.Interruptions)
		}
	}

	c.logger.Info("session.completed", "session_id", session.ID, "active_ms", session.ActiveMS, "auto", fromTicker)
	c.reset()
	c.emit(domain.EventSessionCompleted, cl.state, &session)
	if segErr != nil {
		return session, fmt.Errorf("segment session: %w", segErr)
	}
	return session, nil
}

func (c *Controller) tick(ctx context.Context, run *tickRun, ticker clock.Ticker) {
	defer close(run.done)
	defer ticker.Stop()
	ticks := 0
	for {
		select {
		case <-run.stop:
			return
		case <-ticker.C():
		}
		select {
		case <-run.stop:
			return
		default:
		}

		c.mu.Lock()
		if c.run != run || c.timer.Phase() != domain.PhaseRunning {
			c.mu.Unlock()
			return
		}
		now := c.mono.Now()
		expired := c.timer.Expired(now)
		state := c.timer.Snapshot(now)
		c.mu.Unlock()

		if expired {
			if cl, ok := c.claim(); ok {
				if _, err := c.complete(ctx, cl, true); err != nil {
					c.logger.Error("session.auto_complete_failed", "session_id", cl.state.SessionID, "error", err)
				}
			}
			return
		}

		ticks++
		if ticks%c.cfg.HeartbeatEvery == 0 {
			c.heartbeat(ctx, state)
		}
	}
}

func (c *Controller) heartbeat(ctx context.Context, state domain.State) {
	if state.Mode.Tracked() {
		if err := c.repo.UpdateSessionProgress(ctx, state.SessionID, state.ActiveMS, c.wall.Now()); err != nil {
			c.logger.Warn("session.heartbeat_failed", "session_id", state.SessionID, "error", err)
		}
	}
	c.logger.Debug("session.heartbeat", "session_id", state.SessionID, "active_ms", state.ActiveMS, "remaining_ms", state.RemainingMS)
	c.emit(domain.EventHeartbeat, state, nil)
}

func (c *Controller) emit(kind domain.EventKind, state domain.State, session *domain.Session) {
	if c.notifier == nil {
		return
	}
	c.notifier.Publish(domain.Event{Kind: kind, At: c.wall.Now(), State: state, Session: session})
}
