package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	"focustrail/internal/platform/clock"
)

const (
	daemonStartTimeout = 5 * time.Second
	daemonStopTimeout  = 2 * time.Second
	eventPageSize      = 256
)

// Daemon hosts the controller behind the IPC socket. The same value serves
// both sides: inside the daemon process calls go straight to the controller,
// elsewhere they are forwarded to the running daemon.
type Daemon struct {
	controller *Controller
	capture    sessionout.Capture
	feed       sessionout.EventFeed
	store      sessionout.DaemonStore
	ipcServer  sessionout.IPCServer
	ipcClient  sessionout.IPCClient
	wall       clock.Clock
	provider   string
	runArgs    []string
	logger     *slog.Logger

	mu     sync.RWMutex
	cancel context.CancelFunc
}

func NewDaemon(
	controller *Controller,
	capture sessionout.Capture,
	feed sessionout.EventFeed,
	store sessionout.DaemonStore,
	ipcServer sessionout.IPCServer,
	ipcClient sessionout.IPCClient,
	wall clock.Clock,
	provider string,
	runArgs []string,
	logger *slog.Logger,
) *Daemon {
	return &Daemon{
		controller: controller,
		capture:    capture,
		feed:       feed,
		store:      store,
		ipcServer:  ipcServer,
		ipcClient:  ipcClient,
		wall:       wall,
		provider:   provider,
		runArgs:    runArgs,
		logger:     logger,
	}
}

// RunDaemon serves the IPC API in the current process until ctx is done or
// Stop is called. Sessions left running by a crashed daemon are marked
// interrupted first.
func (d *Daemon) RunDaemon(ctx context.Context) error {
	if err := d.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}
	if socketReachable(d.store.SocketPath()) {
		return fmt.Errorf("%w: another daemon serves %s", domain.ErrDaemonStartFailed, d.store.SocketPath())
	}
	recovered, err := d.controller.Recover(ctx, d.wall.Now())
	if err != nil {
		return fmt.Errorf("recover sessions: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
	}()

	if err := d.store.WritePID(ctx, os.Getpid()); err != nil {
		return err
	}
	d.logger.Info("daemon.started", "pid", os.Getpid(), "socket", d.store.SocketPath(), "provider", d.provider, "recovered", recovered)

	ipcErr := make(chan error, 1)
	go func() {
		if d.ipcServer == nil {
			ipcErr <- fmt.Errorf("ipc server is not configured")
			return
		}
		ipcErr <- d.ipcServer.Serve(runCtx, d.store.SocketPath(), d)
	}()

	var runErr error
	select {
	case <-runCtx.Done():
		<-ipcErr
	case err := <-ipcErr:
		if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}
	d.cleanupRuntime(context.Background())
	return runErr
}

func (d *Daemon) StartDaemon(ctx context.Context) error {
	if err := d.cleanupStaleArtifacts(ctx); err != nil {
		return err
	}
	status, err := d.DaemonStatus(ctx)
	if err == nil && status.Running {
		if socketReachable(d.store.SocketPath()) {
			return nil
		}
		return fmt.Errorf("%w: daemon process is alive but socket is unavailable", domain.ErrDaemonStartFailed)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.store.LogPath()), 0o755); err != nil {
		return fmt.Errorf("create daemon log dir: %w", err)
	}
	logFile, err := os.OpenFile(d.store.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(execPath, d.runArgs...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if err := d.store.WritePID(ctx, cmd.Process.Pid); err != nil {
		return err
	}
	_ = cmd.Process.Release()

	if err := waitForSocket(d.store.SocketPath(), daemonStartTimeout); err != nil {
		_ = d.store.ClearPID(ctx)
		return fmt.Errorf("%w: %v", domain.ErrDaemonStartFailed, err)
	}
	return nil
}

func (d *Daemon) StopDaemon(ctx context.Context) error {
	if d.stopLocal() {
		return nil
	}
	if d.ipcClient != nil && socketReachable(d.store.SocketPath()) {
		_ = d.ipcClient.Stop(ctx, d.store.SocketPath())
	}

	pid, err := d.store.ReadPID(ctx)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_ = os.Remove(d.store.SocketPath())
			return nil
		}
		return err
	}
	if pid <= 0 || !processAlive(pid) {
		_ = d.store.ClearPID(ctx)
		_ = os.Remove(d.store.SocketPath())
		return nil
	}
	// The IPC stop lets the daemon mark its session interrupted; give it a
	// moment before signalling.
	waitForExit(pid, daemonStopTimeout)
	if processAlive(pid) {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("stop daemon pid=%d: %w", pid, err)
		}
		waitForExit(pid, daemonStopTimeout)
	}
	if processAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	if err := d.store.ClearPID(ctx); err != nil {
		return err
	}
	_ = os.Remove(d.store.SocketPath())
	return nil
}

func (d *Daemon) DaemonStatus(ctx context.Context) (sessionout.DaemonRuntimeStatus, error) {
	out := sessionout.DaemonRuntimeStatus{SocketPath: d.store.SocketPath()}
	pid, err := d.store.ReadPID(ctx)
	if err == nil {
		out.PID = pid
		out.Running = processAlive(pid)
	}
	if out.Running && d.ipcClient != nil {
		if status, statusErr := d.ipcClient.Status(ctx, d.store.SocketPath()); statusErr == nil {
			out.Status = status
		}
	}
	return out, nil
}

func (d *Daemon) Start(ctx context.Context, req sessionout.StartRequest) (domain.State, error) {
	if d.local() {
		return d.controller.Start(ctx, req.TargetMS, req.Mode, req.Label)
	}
	if err := d.requireRemote(); err != nil {
		return domain.State{}, err
	}
	return d.ipcClient.Start(ctx, d.store.SocketPath(), req)
}

func (d *Daemon) End(ctx context.Context) (domain.Session, error) {
	if d.local() {
		return d.controller.End(ctx)
	}
	if err := d.requireRemote(); err != nil {
		return domain.Session{}, err
	}
	return d.ipcClient.End(ctx, d.store.SocketPath())
}

func (d *Daemon) Cancel(ctx context.Context) (domain.State, error) {
	if d.local() {
		return d.controller.Cancel(ctx)
	}
	if err := d.requireRemote(); err != nil {
		return domain.State{}, err
	}
	return d.ipcClient.Cancel(ctx, d.store.SocketPath())
}

func (d *Daemon) Status(ctx context.Context) (sessionout.DaemonStatus, error) {
	if d.local() {
		return sessionout.DaemonStatus{
			PID:      os.Getpid(),
			Provider: d.provider,
			State:    d.controller.Snapshot(),
			Capture:  d.capture.Stats(ctx),
			LastSeq:  d.feed.LastSeq(),
		}, nil
	}
	if err := d.requireRemote(); err != nil {
		return sessionout.DaemonStatus{}, err
	}
	return d.ipcClient.Status(ctx, d.store.SocketPath())
}

func (d *Daemon) Events(ctx context.Context, since int64) ([]domain.Event, error) {
	if d.local() {
		return d.feed.Since(since, eventPageSize), nil
	}
	if err := d.requireRemote(); err != nil {
		return nil, err
	}
	return d.ipcClient.Events(ctx, d.store.SocketPath(), since)
}

func (d *Daemon) Stop(ctx context.Context) error {
	return d.StopDaemon(ctx)
}

func (d *Daemon) local() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cancel != nil
}

func (d *Daemon) stopLocal() bool {
	d.mu.RLock()
	cancel := d.cancel
	d.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

func (d *Daemon) requireRemote() error {
	if d.ipcClient == nil || !socketReachable(d.store.SocketPath()) {
		return fmt.Errorf("%w: start it with `focustrail daemon start`", domain.ErrDaemonNotRunning)
	}
	return nil
}

func (d *Daemon) cleanupRuntime(ctx context.Context) {
	if err := d.controller.Shutdown(ctx); err != nil {
		d.logger.Error("daemon.shutdown_failed", "error", err)
	}
	_ = d.store.ClearPID(ctx)
	_ = os.Remove(d.store.SocketPath())
	d.logger.Info("daemon.stopped")
}

func (d *Daemon) cleanupStaleArtifacts(ctx context.Context) error {
	pid, err := d.store.ReadPID(ctx)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else if pid > 0 && !processAlive(pid) {
		_ = d.store.ClearPID(ctx)
		_ = os.Remove(d.store.SocketPath())
	}

	if _, statErr := os.Stat(d.store.SocketPath()); statErr == nil {
		if !socketReachable(d.store.SocketPath()) {
			if removeErr := os.Remove(d.store.SocketPath()); removeErr != nil && !os.IsNotExist(removeErr) {
				return fmt.Errorf("remove stale daemon socket: %w", removeErr)
			}
		}
	}
	return nil
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if socketReachable(path) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon socket not ready: %s", path)
}

func waitForExit(pid int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) && processAlive(pid) {
		time.Sleep(100 * time.Millisecond)
	}
}

func socketReachable(path string) bool {
	conn, err := net.DialTimeout("unix", path, 150*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
