package out

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"focustrail/internal/modules/capture/domain"
	captureout "focustrail/internal/modules/capture/port/out"
	"focustrail/internal/platform/store"
	"focustrail/internal/platform/tx"
)

type SQLiteReadingStore struct {
	store *store.Store
}

func NewSQLiteReadingStore(s *store.Store) captureout.ReadingStore {
	return &SQLiteReadingStore{store: s}
}

func (s *SQLiteReadingStore) InsertReading(ctx context.Context, r domain.Reading) (int64, error) {
	var id int64
	err := s.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var text, segment sql.NullString
		var confidence sql.NullFloat64
		var words sql.NullInt64
		if r.Recognition != nil {
			text = sql.NullString{String: r.Recognition.Text, Valid: true}
			confidence = sql.NullFloat64{Float64: r.Recognition.Confidence, Valid: true}
			words = sql.NullInt64{Int64: int64(r.Recognition.WordCount), Valid: true}
		}
		if r.SegmentID != "" {
			segment = sql.NullString{String: r.SegmentID, Valid: true}
		}
		res, err := db.ExecContext(ctx, `
INSERT INTO readings(session_id, timestamp, window_id, app_id, title, owner,
  bounds_x, bounds_y, bounds_w, bounds_h, phash, ocr_text, ocr_confidence, ocr_word_count, segment_id)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			r.SessionID, r.Timestamp.UTC().UnixMilli(), int64(r.Window.WindowID), r.Window.AppID, r.Window.Title, r.Window.Owner,
			r.Window.Bounds.X, r.Window.Bounds.Y, r.Window.Bounds.W, r.Window.Bounds.H,
			sql.NullString{String: r.Fingerprint, Valid: r.Fingerprint != ""}, text, confidence, words, segment,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	return id, nil
}

func (s *SQLiteReadingStore) ReadingsForSession(ctx context.Context, sessionID string) ([]domain.Reading, error) {
	var out []domain.Reading
	err := s.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
SELECT id, session_id, timestamp, window_id, app_id, title, owner,
  bounds_x, bounds_y, bounds_w, bounds_h, phash, ocr_text, ocr_confidence, ocr_word_count, segment_id
FROM readings
WHERE session_id = ?
ORDER BY timestamp, id
`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r          domain.Reading
				ts         int64
				windowID   int64
				phash      sql.NullString
				text       sql.NullString
				confidence sql.NullFloat64
				words      sql.NullInt64
				segment    sql.NullString
			)
			if err := rows.Scan(&r.ID, &r.SessionID, &ts, &windowID, &r.Window.AppID, &r.Window.Title, &r.Window.Owner,
				&r.Window.Bounds.X, &r.Window.Bounds.Y, &r.Window.Bounds.W, &r.Window.Bounds.H,
				&phash, &text, &confidence, &words, &segment); err != nil {
				return err
			}
			r.Timestamp = time.UnixMilli(ts).UTC()
			r.Window.WindowID = uint32(windowID)
			r.Fingerprint = phash.String
			r.SegmentID = segment.String
			if text.Valid {
				r.Recognition = &domain.Recognition{Text: text.String, Confidence: confidence.Float64, WordCount: int(words.Int64)}
			}
			out = append(out, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list readings: %w", err)
	}
	return out, nil
}

// AssignSegments clears the session's segment ids and stamps each reading
// with the span that contains its timestamp, all in one transaction.
func (s *SQLiteReadingStore) AssignSegments(ctx context.Context, sessionID string, spans []domain.SegmentSpan) error {
	err := s.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			if _, err := t.ExecContext(ctx, `UPDATE readings SET segment_id = NULL WHERE session_id = ?`, sessionID); err != nil {
				return err
			}
			for _, span := range spans {
				if _, err := t.ExecContext(ctx,
					`UPDATE readings SET segment_id = ? WHERE session_id = ? AND timestamp >= ? AND timestamp < ?`,
					span.SegmentID, sessionID, span.Start.UTC().UnixMilli(), span.End.UTC().UnixMilli(),
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("assign segments: %w", err)
	}
	return nil
}

func (s *SQLiteReadingStore) AppUsage(ctx context.Context, sessionIDs []string) ([]domain.AppUsage, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(sessionIDs)+1)
	args = append(args, domain.SystemSurfaceAppID)
	for _, id := range sessionIDs {
		args = append(args, id)
	}
	query := `
SELECT session_id, app_id, MAX(owner), COUNT(*)
FROM readings
WHERE app_id <> ? AND session_id IN (?` + strings.Repeat(", ?", len(sessionIDs)-1) + `)
GROUP BY session_id, app_id
ORDER BY session_id, COUNT(*) DESC, MIN(timestamp)
`
	var out []domain.AppUsage
	err := s.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var u domain.AppUsage
			if err := rows.Scan(&u.SessionID, &u.AppID, &u.Owner, &u.Readings); err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("app usage: %w", err)
	}
	return out, nil
}
