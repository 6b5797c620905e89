package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	captureinadapter "focustrail/internal/modules/capture/adapter/in"
	captureoutadapter "focustrail/internal/modules/capture/adapter/out"
	captureout "focustrail/internal/modules/capture/port/out"
	captureservice "focustrail/internal/modules/capture/service"
	captureusecase "focustrail/internal/modules/capture/usecase"
	segmentationinadapter "focustrail/internal/modules/segmentation/adapter/in"
	segmentationoutadapter "focustrail/internal/modules/segmentation/adapter/out"
	segmentationdomain "focustrail/internal/modules/segmentation/domain"
	segmentationout "focustrail/internal/modules/segmentation/port/out"
	segmentationservice "focustrail/internal/modules/segmentation/service"
	segmentationusecase "focustrail/internal/modules/segmentation/usecase"
	sessioninadapter "focustrail/internal/modules/session/adapter/in"
	sessionoutadapter "focustrail/internal/modules/session/adapter/out"
	sessionservice "focustrail/internal/modules/session/service"
	sessionusecase "focustrail/internal/modules/session/usecase"
	"focustrail/internal/platform/clock"
	"focustrail/internal/platform/config"
	"focustrail/internal/platform/id"
	"focustrail/internal/platform/logging"
	"focustrail/internal/platform/store"
	uiapp "focustrail/internal/ui/app"
)

// Options select what a command needs wired. Only the daemon and the sensing
// sample talk to the display, so other commands skip provider setup.
type Options struct {
	ConfigPath string
	Sensing    bool
	LogOutput  io.Writer
}

type App struct {
	SessionCLI      sessioninadapter.CLIHandler
	CaptureCLI      captureinadapter.CLIHandler
	SegmentationCLI segmentationinadapter.CLIHandler
	Logger          *slog.Logger

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logOutput := opts.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := logging.New(logOutput, cfg.Log.Level, cfg.Log.Format)
	app := &App{Logger: logger}

	db, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })

	wall := clock.SystemClock{}
	mono := clock.NewSystemMonotonic()
	tickers := clock.SystemTickers{}

	provider, providerName, closeProvider := newProvider(cfg, opts.Sensing, logOutput, logger)
	if closeProvider != nil {
		app.closers = append(app.closers, closeProvider)
	}

	loop := captureservice.NewLoop(captureservice.Config{
		Interval:            cfg.Capture.Interval,
		TickTimeout:         cfg.Capture.TickTimeout,
		RecognitionCooldown: cfg.Capture.RecognitionCooldown,
		ChangeThreshold:     cfg.Capture.ChangeThreshold,
		MinScreenshotBytes:  cfg.Capture.MinScreenshotBytes,
	}, provider, captureoutadapter.NewSQLiteReadingStore(db), wall, mono, tickers, logger)
	captureUC := captureusecase.NewInteractor(loop, captureoutadapter.NewSQLiteReadingStore(db))

	segmentationUC := segmentationusecase.NewInteractor(segmentationservice.NewSegmentationService(
		segmentationConfig(cfg),
		segmentationoutadapter.NewCaptureReadingSource(captureUC),
		segmentationoutadapter.NewSQLiteSegmentRepository(db),
		newSummarizer(cfg, logger),
		logger,
	))

	sessionRepo := sessionoutadapter.NewSQLiteSessionRepository(db)
	segmentationBridge := sessionoutadapter.NewSegmentationBridge(segmentationUC)
	captureBridge := sessionoutadapter.NewCaptureBridge(captureUC)
	feed := sessionoutadapter.NewEventFeed(0)
	controller := sessionservice.NewController(
		sessionservice.ControllerConfig{
			TickInterval:   cfg.Session.TickInterval,
			HeartbeatEvery: cfg.Session.HeartbeatEvery,
		},
		sessionRepo,
		captureBridge,
		segmentationBridge,
		feed,
		wall,
		mono,
		tickers,
		id.RandomUUID{},
		logger,
	)
	daemon := sessionservice.NewDaemon(
		controller,
		captureBridge,
		feed,
		sessionoutadapter.NewFileDaemonStore(cfg.PIDPath, cfg.SocketPath, cfg.LogPath),
		sessionoutadapter.NewJSONRPCServer(),
		sessionoutadapter.NewJSONRPCClient(),
		wall,
		providerName,
		daemonRunArgs(cfg, opts.ConfigPath),
		logger,
	)
	history := sessionservice.NewHistory(
		sessionRepo,
		segmentationBridge,
		sessionoutadapter.NewMarkdownReportStore(cfg.ReportDir),
		sessionoutadapter.NewAppUsageBridge(captureUC),
	)
	labels := sessionservice.NewLabels(sessionoutadapter.NewSQLiteLabelRepository(db), wall, id.RandomUUID{})

	app.SessionCLI = sessioninadapter.NewCLIHandler(sessionusecase.NewInteractor(daemon, history, labels))
	app.CaptureCLI = captureinadapter.NewCLIHandler(captureUC)
	app.SegmentationCLI = segmentationinadapter.NewCLIHandler(segmentationUC)
	return app, nil
}

// Close releases the sensing provider and the store, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.SessionCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func newProvider(cfg config.Config, sensing bool, logOutput io.Writer, logger *slog.Logger) (captureout.Provider, string, func()) {
	if !sensing {
		return captureoutadapter.NoopProvider{}, cfg.Sensing.Provider, nil
	}
	switch cfg.Sensing.Provider {
	case config.ProviderPlugin:
		p, err := captureoutadapter.NewPluginProvider(cfg.Sensing.PluginPath, cfg.Sensing.PluginSHA256, logOutput)
		if err != nil {
			logger.Warn("sensing.plugin_unavailable", "path", cfg.Sensing.PluginPath, "error", err)
			return captureoutadapter.NoopProvider{}, config.ProviderNone, nil
		}
		return p, config.ProviderPlugin, p.Close
	case config.ProviderNone:
		return captureoutadapter.NoopProvider{}, config.ProviderNone, nil
	default:
		p, err := captureoutadapter.NewX11Provider()
		if err != nil {
			logger.Warn("sensing.x11_unavailable", "error", err)
			return captureoutadapter.NoopProvider{}, config.ProviderNone, nil
		}
		return p, config.ProviderX11, p.Close
	}
}

func newSummarizer(cfg config.Config, logger *slog.Logger) segmentationout.Summarizer {
	key := os.Getenv(cfg.Summary.APIKeyEnv)
	if key == "" {
		return nil
	}
	s, err := segmentationoutadapter.NewOpenAISummarizer(key, cfg.Summary.Model)
	if err != nil {
		logger.Warn("summary.disabled", "error", err)
		return nil
	}
	return s
}

func segmentationConfig(cfg config.Config) segmentationdomain.Config {
	out := segmentationdomain.DefaultConfig()
	out.Interval = cfg.Capture.Interval
	out.MinSegmentDuration = cfg.Segmentation.MinSegmentDuration
	out.SandwichMax = cfg.Segmentation.SandwichMax
	out.TransitionWindow = cfg.Segmentation.TransitionWindow
	out.TransitionSwitches = cfg.Segmentation.TransitionSwitches
	out.DistractedAfter = cfg.Segmentation.DistractedAfter
	out.Weights = segmentationdomain.Weights{
		Duration:    cfg.Segmentation.Weights.Duration,
		Stability:   cfg.Segmentation.Weights.Stability,
		Visual:      cfg.Segmentation.Weights.Visual,
		Recognition: cfg.Segmentation.Weights.Recognition,
	}
	return out
}

func daemonRunArgs(cfg config.Config, configPath string) []string {
	args := []string{"daemon", "__run", "--data-dir", cfg.DataDir}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}
