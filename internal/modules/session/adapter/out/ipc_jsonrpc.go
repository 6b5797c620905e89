package out

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"path/filepath"
	"strings"
	"time"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	apperrors "focustrail/internal/platform/errors"
)

const (
	serviceName = "Focustrail"
	callTimeout = 30 * time.Second
)

type JSONRPCServer struct{}

type JSONRPCClient struct{}

func NewJSONRPCServer() sessionout.IPCServer {
	return &JSONRPCServer{}
}

func NewJSONRPCClient() sessionout.IPCClient {
	return &JSONRPCClient{}
}

type rpcHandler struct {
	h sessionout.IPCHandler
}

// Argument and reply types are exported because net/rpc skips methods whose
// argument types are not.

type StartArgs struct {
	TargetMS int64
	Mode     string
	Label    string
}

type EventsArgs struct {
	Since int64
}

type StatusReply struct {
	Status sessionout.DaemonStatus
}

type Empty struct{}

func (s *rpcHandler) Start(req StartArgs, resp *domain.State) error {
	state, err := s.h.Start(context.Background(), sessionout.StartRequest{
		TargetMS: req.TargetMS,
		Mode:     domain.Mode(req.Mode),
		Label:    req.Label,
	})
	if err != nil {
		return err
	}
	*resp = state
	return nil
}

// EndReply carries the finalized session even when segmentation failed; the
// failure travels in Err so the client can report both.
type EndReply struct {
	Session domain.Session
	Err     string
}

func (s *rpcHandler) End(_ Empty, resp *EndReply) error {
	session, err := s.h.End(context.Background())
	if err != nil && session.ID == "" {
		return err
	}
	resp.Session = session
	if err != nil {
		resp.Err = err.Error()
	}
	return nil
}

func (s *rpcHandler) Cancel(_ Empty, resp *domain.State) error {
	state, err := s.h.Cancel(context.Background())
	if err != nil {
		return err
	}
	*resp = state
	return nil
}

func (s *rpcHandler) Status(_ Empty, resp *StatusReply) error {
	status, err := s.h.Status(context.Background())
	if err != nil {
		return err
	}
	resp.Status = status
	return nil
}

func (s *rpcHandler) Events(req EventsArgs, resp *[]domain.Event) error {
	events, err := s.h.Events(context.Background(), req.Since)
	if err != nil {
		return err
	}
	*resp = events
	return nil
}

func (s *rpcHandler) Stop(_ Empty, _ *Empty) error {
	return s.h.Stop(context.Background())
}

func (s *JSONRPCServer) Serve(ctx context.Context, socketPath string, handler sessionout.IPCHandler) error {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("create ipc dir: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale ipc socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen ipc socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return fmt.Errorf("chmod ipc socket: %w", err)
	}
	defer ln.Close()

	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName(serviceName, &rpcHandler{h: handler}); err != nil {
		return fmt.Errorf("register ipc handler: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()
	defer close(stop)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}
		go rpcSrv.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

func (c *JSONRPCClient) Start(ctx context.Context, socketPath string, req sessionout.StartRequest) (domain.State, error) {
	resp := domain.State{}
	err := call(ctx, socketPath, "Start", StartArgs{TargetMS: req.TargetMS, Mode: string(req.Mode), Label: req.Label}, &resp)
	return resp, err
}

func (c *JSONRPCClient) End(ctx context.Context, socketPath string) (domain.Session, error) {
	resp := EndReply{}
	if err := call(ctx, socketPath, "End", Empty{}, &resp); err != nil {
		return domain.Session{}, err
	}
	if resp.Err != "" {
		return resp.Session, remoteError(resp.Err)
	}
	return resp.Session, nil
}

func (c *JSONRPCClient) Cancel(ctx context.Context, socketPath string) (domain.State, error) {
	resp := domain.State{}
	err := call(ctx, socketPath, "Cancel", Empty{}, &resp)
	return resp, err
}

func (c *JSONRPCClient) Status(ctx context.Context, socketPath string) (sessionout.DaemonStatus, error) {
	resp := StatusReply{}
	if err := call(ctx, socketPath, "Status", Empty{}, &resp); err != nil {
		return sessionout.DaemonStatus{}, err
	}
	return resp.Status, nil
}

func (c *JSONRPCClient) Events(ctx context.Context, socketPath string, since int64) ([]domain.Event, error) {
	resp := []domain.Event{}
	if err := call(ctx, socketPath, "Events", EventsArgs{Since: since}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *JSONRPCClient) Stop(ctx context.Context, socketPath string) error {
	return call(ctx, socketPath, "Stop", Empty{}, &Empty{})
}

func call(ctx context.Context, socketPath, method string, args, reply any) error {
	client, err := dialClient(ctx, socketPath)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := client.Call(serviceName+"."+method, args, reply); err != nil {
		var serverErr rpc.ServerError
		if errors.As(err, &serverErr) {
			return remoteError(string(serverErr))
		}
		return err
	}
	return nil
}

func dialClient(ctx context.Context, socketPath string) (*rpc.Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDaemonNotRunning, err)
	}
	_ = conn.SetDeadline(time.Now().Add(callTimeout))
	return rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn)), nil
}

// remoteSentinels are the errors a caller may branch on after they crossed
// the socket as plain text.
var remoteSentinels = []error{
	apperrors.ErrActiveSessionExists,
	apperrors.ErrNoActiveSession,
	apperrors.ErrInvalidInput,
	apperrors.ErrNotFound,
}

type wireError struct {
	msg      string
	sentinel error
}

func (e *wireError) Error() string { return e.msg }
func (e *wireError) Unwrap() error { return e.sentinel }

func remoteError(msg string) error {
	for _, sentinel := range remoteSentinels {
		if strings.Contains(msg, sentinel.Error()) {
			return &wireError{msg: msg, sentinel: sentinel}
		}
	}
	return errors.New(msg)
}
