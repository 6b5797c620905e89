package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir    string `yaml:"-"`
	DBPath     string `yaml:"db_path"`
	SocketPath string `yaml:"socket_path"`
	PIDPath    string `yaml:"pid_path"`
	LogPath    string `yaml:"log_path"`
	ReportDir  string `yaml:"report_dir"`

	Log          LogConfig          `yaml:"log"`
	Capture      CaptureConfig      `yaml:"capture"`
	Session      SessionConfig      `yaml:"session"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	Sensing      SensingConfig      `yaml:"sensing"`
	Summary      SummaryConfig      `yaml:"summary"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CaptureConfig struct {
	Interval            time.Duration `yaml:"interval"`
	TickTimeout         time.Duration `yaml:"tick_timeout"`
	RecognitionCooldown time.Duration `yaml:"recognition_cooldown"`
	ChangeThreshold     int           `yaml:"change_threshold"`
	MinScreenshotBytes  int           `yaml:"min_screenshot_bytes"`
}

type SessionConfig struct {
	TickInterval   time.Duration `yaml:"tick_interval"`
	HeartbeatEvery int           `yaml:"heartbeat_every"`
}

type SegmentationConfig struct {
	MinSegmentDuration time.Duration `yaml:"min_segment_duration"`
	SandwichMax        time.Duration `yaml:"sandwich_max"`
	TransitionWindow   time.Duration `yaml:"transition_window"`
	TransitionSwitches int           `yaml:"transition_switches"`
	DistractedAfter    time.Duration `yaml:"distracted_after"`
	Weights            WeightConfig  `yaml:"weights"`
}

type WeightConfig struct {
	Duration    float64 `yaml:"duration"`
	Stability   float64 `yaml:"stability"`
	Visual      float64 `yaml:"visual"`
	Recognition float64 `yaml:"recognition"`
}

type SensingConfig struct {
	Provider     string `yaml:"provider"`
	PluginPath   string `yaml:"plugin_path"`
	PluginSHA256 string `yaml:"plugin_sha256"`
}

type SummaryConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

const (
	ProviderX11    = "x11"
	ProviderPlugin = "plugin"
	ProviderNone   = "none"
)

// New returns the default configuration rooted at dataDir.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	return Config{
		DataDir:    dataDir,
		DBPath:     filepath.Join(dataDir, "focustrail.db"),
		SocketPath: filepath.Join(dataDir, "daemon.sock"),
		PIDPath:    filepath.Join(dataDir, "daemon.pid"),
		LogPath:    filepath.Join(dataDir, "daemon.log"),
		ReportDir:  filepath.Join(dataDir, "reports"),
		Log:        LogConfig{Level: "info", Format: "json"},
		Capture: CaptureConfig{
			Interval:            5 * time.Second,
			TickTimeout:         5 * time.Second,
			RecognitionCooldown: 20 * time.Second,
			ChangeThreshold:     8,
			MinScreenshotBytes:  1000,
		},
		Session: SessionConfig{
			TickInterval:   time.Second,
			HeartbeatEvery: 10,
		},
		Segmentation: SegmentationConfig{
			MinSegmentDuration: 30 * time.Second,
			SandwichMax:        12 * time.Second,
			TransitionWindow:   60 * time.Second,
			TransitionSwitches: 3,
			DistractedAfter:    3 * time.Minute,
			Weights:            WeightConfig{Duration: 0.30, Stability: 0.40, Visual: 0.15, Recognition: 0.15},
		},
		Sensing: SensingConfig{Provider: ProviderX11},
		Summary: SummaryConfig{Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
	}, nil
}

// DefaultDataDir resolves $XDG_DATA_HOME/focustrail, falling back to ~/.local/share.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "focustrail")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".focustrail"
	}
	return filepath.Join(home, ".local", "share", "focustrail")
}

// DefaultPath resolves $XDG_CONFIG_HOME/focustrail/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "focustrail.yaml"
	}
	return filepath.Join(dir, "focustrail", "config.yaml")
}

// Load overlays the YAML file at path on the defaults. A missing file yields defaults.
func Load(path, dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Validate()
	return cfg, nil
}

// Validate replaces out-of-range values with defaults.
func (c *Config) Validate() {
	if c.DataDir == "" {
		return
	}
	def, _ := New(c.DataDir)
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.SocketPath == "" {
		c.SocketPath = def.SocketPath
	}
	if c.PIDPath == "" {
		c.PIDPath = def.PIDPath
	}
	if c.LogPath == "" {
		c.LogPath = def.LogPath
	}
	if c.ReportDir == "" {
		c.ReportDir = def.ReportDir
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		c.Log.Format = def.Log.Format
	}

	if c.Capture.Interval <= 0 {
		c.Capture.Interval = def.Capture.Interval
	}
	if c.Capture.TickTimeout <= 0 {
		c.Capture.TickTimeout = def.Capture.TickTimeout
	}
	if c.Capture.RecognitionCooldown < 0 {
		c.Capture.RecognitionCooldown = def.Capture.RecognitionCooldown
	}
	if c.Capture.ChangeThreshold < 0 || c.Capture.ChangeThreshold > 128 {
		c.Capture.ChangeThreshold = def.Capture.ChangeThreshold
	}
	if c.Capture.MinScreenshotBytes < 0 {
		c.Capture.MinScreenshotBytes = def.Capture.MinScreenshotBytes
	}

	if c.Session.TickInterval <= 0 {
		c.Session.TickInterval = def.Session.TickInterval
	}
	if c.Session.HeartbeatEvery <= 0 {
		c.Session.HeartbeatEvery = def.Session.HeartbeatEvery
	}

	seg := &c.Segmentation
	if seg.MinSegmentDuration <= 0 {
		seg.MinSegmentDuration = def.Segmentation.MinSegmentDuration
	}
	if seg.SandwichMax <= 0 {
		seg.SandwichMax = def.Segmentation.SandwichMax
	}
	if seg.TransitionWindow <= 0 {
		seg.TransitionWindow = def.Segmentation.TransitionWindow
	}
	if seg.TransitionSwitches <= 0 {
		seg.TransitionSwitches = def.Segmentation.TransitionSwitches
	}
	if seg.DistractedAfter <= 0 {
		seg.DistractedAfter = def.Segmentation.DistractedAfter
	}
	w := seg.Weights
	if w.Duration < 0 || w.Stability < 0 || w.Visual < 0 || w.Recognition < 0 ||
		w.Duration+w.Stability+w.Visual+w.Recognition == 0 {
		seg.Weights = def.Segmentation.Weights
	}

	switch c.Sensing.Provider {
	case ProviderX11, ProviderPlugin, ProviderNone:
	default:
		c.Sensing.Provider = def.Sensing.Provider
	}
	if c.Summary.Model == "" {
		c.Summary.Model = def.Summary.Model
	}
	if c.Summary.APIKeyEnv == "" {
		c.Summary.APIKeyEnv = def.Summary.APIKeyEnv
	}
}
