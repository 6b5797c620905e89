// Command x11sensing serves the built-in X11 provider over the sensing
// plugin protocol, for hosts that want sensing out of process.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	captureoutadapter "focustrail/internal/modules/capture/adapter/out"
	sensingrpc "focustrail/internal/modules/capture/adapter/out/rpc"
	apperrors "focustrail/internal/platform/errors"
)

const version = "1.0.0"

type server struct {
	provider *captureoutadapter.X11Provider
}

func (s *server) GetInfo(context.Context, *sensingrpc.Empty) (*sensingrpc.Info, error) {
	return &sensingrpc.Info{Name: "x11sensing", Version: version}, nil
}

func (s *server) ActiveWindow(ctx context.Context, _ *sensingrpc.Empty) (*sensingrpc.WindowResponse, error) {
	win, err := s.provider.ActiveWindow(ctx)
	if err != nil {
		return nil, err
	}
	if win == nil {
		return &sensingrpc.WindowResponse{}, nil
	}
	return &sensingrpc.WindowResponse{
		Found:    true,
		WindowID: win.WindowID,
		AppID:    win.AppID,
		Title:    win.Title,
		Owner:    win.Owner,
		Bounds: sensingrpc.Bounds{
			X: int32(win.Bounds.X),
			Y: int32(win.Bounds.Y),
			W: int32(win.Bounds.W),
			H: int32(win.Bounds.H),
		},
	}, nil
}

func (s *server) CaptureScreenshot(ctx context.Context, in *sensingrpc.ScreenshotRequest) (*sensingrpc.ScreenshotResponse, error) {
	png, err := s.provider.CaptureScreenshot(ctx, in.WindowID)
	if err != nil {
		return nil, err
	}
	return &sensingrpc.ScreenshotResponse{PNG: png}, nil
}

func (s *server) RunRecognition(ctx context.Context, in *sensingrpc.RecognitionRequest) (*sensingrpc.RecognitionResponse, error) {
	rec, err := s.provider.RunRecognition(ctx, in.Image)
	if errors.Is(err, apperrors.ErrRecognitionUnsupported) {
		return &sensingrpc.RecognitionResponse{Unsupported: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &sensingrpc.RecognitionResponse{Text: rec.Text, Confidence: rec.Confidence, WordCount: int32(rec.WordCount)}, nil
}

func main() {
	provider, err := captureoutadapter.NewX11Provider()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer provider.Close()
	sensingrpc.Serve(&server{provider: provider})
}
