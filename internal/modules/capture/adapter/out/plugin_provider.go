package out

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	sensingrpc "focustrail/internal/modules/capture/adapter/out/rpc"
	"focustrail/internal/modules/capture/domain"
	captureout "focustrail/internal/modules/capture/port/out"
	apperrors "focustrail/internal/platform/errors"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const pluginStartTimeout = 3 * time.Second

// PluginProvider delegates sensing to an out-of-process plugin speaking the
// sensing gRPC contract. The plugin is started on first use and restarted
// after it dies.
type PluginProvider struct {
	binary    string
	checksum  []byte
	logOutput io.Writer

	mu     sync.Mutex
	client *plugin.Client
	rpc    sensingrpc.SensingClient
}

// NewPluginProvider validates the optional hex sha256 of the binary. When
// set, go-plugin refuses to launch a binary that does not match.
func NewPluginProvider(binary, sha256Hex string, logOutput io.Writer) (*PluginProvider, error) {
	if strings.TrimSpace(binary) == "" {
		return nil, fmt.Errorf("%w: plugin path is required", apperrors.ErrInvalidInput)
	}
	p := &PluginProvider{binary: binary, logOutput: logOutput}
	if sha256Hex != "" {
		sum, err := hex.DecodeString(sha256Hex)
		if err != nil || len(sum) != sha256.Size {
			return nil, fmt.Errorf("%w: plugin sha256 must be %d hex bytes", apperrors.ErrInvalidInput, sha256.Size)
		}
		p.checksum = sum
	}
	if p.logOutput == nil {
		p.logOutput = io.Discard
	}
	return p, nil
}

var _ captureout.Provider = (*PluginProvider)(nil)

func (p *PluginProvider) Name() string {
	return "plugin"
}

func (p *PluginProvider) ActiveWindow(ctx context.Context) (*domain.WindowInfo, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}
	resp, err := client.ActiveWindow(ctx)
	if err != nil {
		p.dropIfExited()
		return nil, fmt.Errorf("plugin active window: %w", err)
	}
	if !resp.Found {
		return nil, nil
	}
	return &domain.WindowInfo{
		WindowID: resp.WindowID,
		AppID:    resp.AppID,
		Title:    resp.Title,
		Owner:    resp.Owner,
		Bounds: domain.Bounds{
			X: int(resp.Bounds.X),
			Y: int(resp.Bounds.Y),
			W: int(resp.Bounds.W),
			H: int(resp.Bounds.H),
		},
	}, nil
}

func (p *PluginProvider) CaptureScreenshot(ctx context.Context, windowID uint32) ([]byte, error) {
	client, err := p.connect()
	if err != nil {
		return nil, err
	}
	resp, err := client.CaptureScreenshot(ctx, &sensingrpc.ScreenshotRequest{WindowID: windowID})
	if err != nil {
		p.dropIfExited()
		return nil, fmt.Errorf("plugin capture screenshot: %w", err)
	}
	return resp.PNG, nil
}

func (p *PluginProvider) RunRecognition(ctx context.Context, image []byte) (domain.Recognition, error) {
	client, err := p.connect()
	if err != nil {
		return domain.Recognition{}, err
	}
	resp, err := client.RunRecognition(ctx, &sensingrpc.RecognitionRequest{Image: image})
	if err != nil {
		p.dropIfExited()
		return domain.Recognition{}, fmt.Errorf("plugin run recognition: %w", err)
	}
	if resp.Unsupported {
		return domain.Recognition{}, apperrors.ErrRecognitionUnsupported
	}
	return domain.Recognition{Text: resp.Text, Confidence: resp.Confidence, WordCount: int(resp.WordCount)}, nil
}

// Info starts the plugin if needed and reports its self-description.
func (p *PluginProvider) Info(ctx context.Context) (sensingrpc.Info, error) {
	client, err := p.connect()
	if err != nil {
		return sensingrpc.Info{}, err
	}
	info, err := client.GetInfo(ctx)
	if err != nil {
		return sensingrpc.Info{}, fmt.Errorf("plugin info: %w", err)
	}
	return *info, nil
}

func (p *PluginProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Kill()
		p.client = nil
		p.rpc = nil
	}
}

func (p *PluginProvider) connect() (sensingrpc.SensingClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && !p.client.Exited() {
		return p.rpc, nil
	}
	cfg := &plugin.ClientConfig{
		HandshakeConfig:  sensingrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          sensingrpc.PluginMap(nil),
		Cmd:              exec.Command(p.binary),
		Managed:          true,
		StartTimeout:     pluginStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Name: "sensing", Output: p.logOutput, Level: hclog.Warn}),
	}
	if p.checksum != nil {
		cfg.SecureConfig = &plugin.SecureConfig{Checksum: p.checksum, Hash: sha256.New()}
	}
	client := plugin.NewClient(cfg)
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("start sensing plugin: %w", err)
	}
	raw, err := rpcClient.Dispense(sensingrpc.PluginMapKey)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense sensing plugin: %w", err)
	}
	typed, ok := raw.(sensingrpc.SensingClient)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("sensing plugin client type mismatch")
	}
	p.client = client
	p.rpc = typed
	return typed, nil
}

func (p *PluginProvider) dropIfExited() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.Exited() {
		p.client = nil
		p.rpc = nil
	}
}
