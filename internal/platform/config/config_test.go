package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"focustrail/internal/platform/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"), dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capture.Interval != 5*time.Second || cfg.Capture.RecognitionCooldown != 20*time.Second {
		t.Fatalf("unexpected capture defaults: %+v", cfg.Capture)
	}
	if cfg.DBPath != filepath.Join(dir, "focustrail.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
}

func TestLoadOverlaysAndClampsInvalidValues(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
log:
  level: loud
capture:
  interval: 2s
  change_threshold: 400
segmentation:
  sandwich_max: 20s
  weights:
    duration: -1
sensing:
  provider: plugin
  plugin_path: /opt/sense
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(path, dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capture.Interval != 2*time.Second {
		t.Fatalf("expected interval override, got %s", cfg.Capture.Interval)
	}
	if cfg.Capture.ChangeThreshold != 8 {
		t.Fatalf("expected clamped threshold, got %d", cfg.Capture.ChangeThreshold)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected default level, got %s", cfg.Log.Level)
	}
	if cfg.Segmentation.SandwichMax != 20*time.Second {
		t.Fatalf("expected sandwich override, got %s", cfg.Segmentation.SandwichMax)
	}
	if cfg.Segmentation.Weights.Stability != 0.40 {
		t.Fatalf("expected default weights after invalid override, got %+v", cfg.Segmentation.Weights)
	}
	if cfg.Sensing.Provider != config.ProviderPlugin || cfg.Sensing.PluginPath != "/opt/sense" {
		t.Fatalf("unexpected sensing config: %+v", cfg.Sensing)
	}
}

func TestNewRequiresDataDir(t *testing.T) {
	t.Parallel()
	if _, err := config.New(""); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}
