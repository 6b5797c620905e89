package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/store"
)

const sessionColumns = `id, started_at, stopped_at, status, mode, label, target_ms, active_ms, created_at, updated_at`

const selectSessions = `
SELECT s.id, s.started_at, s.stopped_at, s.status, s.mode, s.label, s.target_ms, s.active_ms,
       s.created_at, s.updated_at, COALESCE(s.label_id, ''), COALESCE(l.name, '')
FROM sessions s
LEFT JOIN labels l ON l.id = s.label_id`

type SQLiteSessionRepository struct {
	store *store.Store
}

func NewSQLiteSessionRepository(s *store.Store) sessionout.SessionRepository {
	return &SQLiteSessionRepository{store: s}
}

func (r *SQLiteSessionRepository) InsertSession(ctx context.Context, s domain.Session) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `
INSERT INTO sessions(`+sessionColumns+`)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, s.ID, ms(s.StartedAt), nullableMS(s.StoppedAt), string(s.Status), string(s.Mode), s.Label,
			s.TargetMS, s.ActiveMS, ms(s.CreatedAt), ms(s.UpdatedAt))
		return err
	})
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SQLiteSessionRepository) MarkSessionStatus(ctx context.Context, sessionID string, status domain.Status, activeMS int64, stoppedAt, updatedAt time.Time) error {
	return r.update(ctx, sessionID, "mark session status", `
UPDATE sessions SET status = ?, active_ms = ?, stopped_at = ?, updated_at = ? WHERE id = ?
`, string(status), activeMS, nullableMS(stoppedAt), ms(updatedAt), sessionID)
}

func (r *SQLiteSessionRepository) UpdateSessionProgress(ctx context.Context, sessionID string, activeMS int64, updatedAt time.Time) error {
	return r.update(ctx, sessionID, "update session progress", `
UPDATE sessions SET active_ms = ?, updated_at = ? WHERE id = ?
`, activeMS, ms(updatedAt), sessionID)
}

func (r *SQLiteSessionRepository) GetIncompleteSession(ctx context.Context) (domain.Session, error) {
	return r.one(ctx, selectSessions+` WHERE s.status = ? ORDER BY s.started_at LIMIT 1`, string(domain.StatusRunning))
}

func (r *SQLiteSessionRepository) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	return r.one(ctx, selectSessions+` WHERE s.id = ?`, sessionID)
}

func (r *SQLiteSessionRepository) ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, error) {
	var out []domain.Session
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, selectSessions+`
WHERE s.status IN (?, ?)
ORDER BY s.started_at DESC, s.id
LIMIT ? OFFSET ?
`, string(domain.StatusCompleted), string(domain.StatusInterrupted), limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			s, err := scanSession(rows)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (r *SQLiteSessionRepository) update(ctx context.Context, sessionID, op, query string, args ...any) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, sessionID, err)
	}
	return nil
}

func (r *SQLiteSessionRepository) one(ctx context.Context, query string, args ...any) (domain.Session, error) {
	var out domain.Session
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		s, err := scanSession(db.QueryRowContext(ctx, query, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		out = s
		return err
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		s                    domain.Session
		startedAt, createdAt int64
		updatedAt            int64
		stoppedAt            sql.NullInt64
		status, mode         string
	)
	if err := row.Scan(&s.ID, &startedAt, &stoppedAt, &status, &mode, &s.Label, &s.TargetMS, &s.ActiveMS, &createdAt, &updatedAt, &s.LabelID, &s.LabelName); err != nil {
		return domain.Session{}, err
	}
	s.StartedAt = time.UnixMilli(startedAt).UTC()
	if stoppedAt.Valid {
		s.StoppedAt = time.UnixMilli(stoppedAt.Int64).UTC()
	}
	s.Status = domain.Status(status)
	s.Mode = domain.Mode(mode)
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	s.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return s, nil
}

func ms(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func nullableMS(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ms(t), Valid: true}
}
