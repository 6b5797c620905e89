package store

import (
	"context"
	"database/sql"
	"fmt"

	"focustrail/internal/platform/tx"
)

type migration struct {
	version int
	name    string
	ddl     string
}

// Timestamps are unix milliseconds, UTC.
var migrations = []migration{
	{
		version: 1,
		name:    "sessions and readings",
		ddl: `
CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  started_at INTEGER NOT NULL,
  stopped_at INTEGER,
  status TEXT NOT NULL,
  mode TEXT NOT NULL,
  label TEXT NOT NULL DEFAULT '',
  target_ms INTEGER NOT NULL,
  active_ms INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status, started_at);

CREATE TABLE IF NOT EXISTS readings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  timestamp INTEGER NOT NULL,
  window_id INTEGER NOT NULL DEFAULT 0,
  app_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  owner TEXT NOT NULL DEFAULT '',
  bounds_x INTEGER NOT NULL DEFAULT 0,
  bounds_y INTEGER NOT NULL DEFAULT 0,
  bounds_w INTEGER NOT NULL DEFAULT 0,
  bounds_h INTEGER NOT NULL DEFAULT 0,
  phash TEXT,
  ocr_text TEXT,
  ocr_confidence REAL,
  ocr_word_count INTEGER,
  segment_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_readings_session_ts ON readings(session_id, timestamp);
`,
	},
	{
		version: 2,
		name:    "segments and interruptions",
		ddl: `
CREATE TABLE IF NOT EXISTS segments (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  start_time INTEGER NOT NULL,
  end_time INTEGER NOT NULL,
  last_reading_at INTEGER NOT NULL,
  duration_secs REAL NOT NULL,
  app_id TEXT NOT NULL,
  owner TEXT NOT NULL DEFAULT '',
  window_title TEXT NOT NULL DEFAULT '',
  reading_count INTEGER NOT NULL,
  unique_phash_count INTEGER NOT NULL,
  duration_score REAL NOT NULL,
  stability_score REAL NOT NULL,
  visual_score REAL NOT NULL,
  recognition_score REAL NOT NULL,
  confidence REAL NOT NULL,
  transitioning INTEGER NOT NULL DEFAULT 0,
  summary TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_segments_session ON segments(session_id, start_time);

CREATE TABLE IF NOT EXISTS interruptions (
  id TEXT PRIMARY KEY,
  segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
  app_id TEXT NOT NULL,
  owner TEXT NOT NULL DEFAULT '',
  timestamp INTEGER NOT NULL,
  duration_secs REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interruptions_segment ON interruptions(segment_id, timestamp);
`,
	},
	{
		version: 3,
		name:    "segment types and labels",
		ddl: `
ALTER TABLE segments ADD COLUMN segment_type TEXT NOT NULL DEFAULT 'stable';
UPDATE segments SET segment_type = 'transitioning' WHERE transitioning = 1;

CREATE TABLE IF NOT EXISTS labels (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE COLLATE NOCASE,
  color TEXT NOT NULL,
  order_index INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

ALTER TABLE sessions ADD COLUMN label_id TEXT REFERENCES labels(id) ON DELETE SET NULL;
CREATE INDEX IF NOT EXISTS idx_readings_session_app ON readings(session_id, app_id);
`,
	},
}

func migrate(ctx context.Context, db *sql.DB, steps []migration) error {
	var current int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for _, step := range steps {
		if step.version <= current {
			continue
		}
		err := tx.Run(ctx, db, func(t *sql.Tx) error {
			if _, err := t.ExecContext(ctx, step.ddl); err != nil {
				return err
			}
			_, err := t.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.version))
			return err
		})
		if err != nil {
			return fmt.Errorf("migrate %d (%s): %w", step.version, step.name, err)
		}
		current = step.version
	}
	return nil
}

// Version reports the applied schema version.
func (s *Store) Version(ctx context.Context) (int, error) {
	var v int
	err := s.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v)
	})
	return v, err
}
