package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"focustrail/internal/platform/logging"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	logger := logging.New(buf, "warn", "json")
	logger.Info("capture.tick", "n", 1)
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level: %s", buf.String())
	}
	logger.Warn("capture.tick_timeout", "session_id", "s1")
	record := map[string]any{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["msg"] != "capture.tick_timeout" || record["session_id"] != "s1" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	if logging.ParseLevel("DEBUG") != slog.LevelDebug || logging.ParseLevel("nope") != slog.LevelInfo {
		t.Fatalf("unexpected level parsing")
	}
}
