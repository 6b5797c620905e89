package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focustrail/internal/modules/segmentation/domain"
	segmentationout "focustrail/internal/modules/segmentation/port/out"
	apperrors "focustrail/internal/platform/errors"
	"focustrail/internal/platform/store"
	"focustrail/internal/platform/tx"
)

type SQLiteSegmentRepository struct {
	store *store.Store
}

func NewSQLiteSegmentRepository(s *store.Store) segmentationout.SegmentRepository {
	return &SQLiteSegmentRepository{store: s}
}

const segmentColumns = `id, session_id, start_time, end_time, last_reading_at, duration_secs, app_id, owner, window_title,
  reading_count, unique_phash_count, duration_score, stability_score, visual_score, recognition_score,
  confidence, transitioning, segment_type, summary`

func (r *SQLiteSegmentRepository) ReplaceSegments(ctx context.Context, sessionID string, result domain.Result) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			if _, err := t.ExecContext(ctx, `DELETE FROM interruptions WHERE segment_id IN (SELECT id FROM segments WHERE session_id = ?)`, sessionID); err != nil {
				return fmt.Errorf("clear interruptions: %w", err)
			}
			if _, err := t.ExecContext(ctx, `DELETE FROM segments WHERE session_id = ?`, sessionID); err != nil {
				return fmt.Errorf("clear segments: %w", err)
			}
			for _, seg := range result.Segments {
				_, err := t.ExecContext(ctx, `INSERT INTO segments(`+segmentColumns+`)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					seg.ID, sessionID, ms(seg.Start), ms(seg.End), ms(seg.LastReadingAt), seg.DurationSecs,
					seg.AppID, seg.Owner, seg.WindowTitle, seg.ReadingCount, seg.UniqueFingerprints,
					seg.Scores.Duration, seg.Scores.Stability, seg.Scores.Visual, seg.Scores.Recognition,
					seg.Confidence, seg.Transitioning, string(segmentType(seg)), seg.Summary,
				)
				if err != nil {
					return fmt.Errorf("insert segment %s: %w", seg.ID, err)
				}
			}
			for _, in := range result.Interruptions {
				_, err := t.ExecContext(ctx, `INSERT INTO interruptions(id, segment_id, app_id, owner, timestamp, duration_secs)
VALUES(?, ?, ?, ?, ?, ?)`, in.ID, in.SegmentID, in.AppID, in.Owner, ms(in.Timestamp), in.DurationSecs)
				if err != nil {
					return fmt.Errorf("insert interruption %s: %w", in.ID, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}
	return nil
}

func (r *SQLiteSegmentRepository) SegmentsForSession(ctx context.Context, sessionID string) ([]domain.Segment, error) {
	var out []domain.Segment
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE session_id = ? ORDER BY start_time`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			seg, err := scanSegment(rows)
			if err != nil {
				return err
			}
			out = append(out, seg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	return out, nil
}

func (r *SQLiteSegmentRepository) GetSegment(ctx context.Context, segmentID string) (domain.Segment, error) {
	var seg domain.Segment
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		var err error
		seg, err = scanSegment(db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments WHERE id = ?`, segmentID))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Segment{}, fmt.Errorf("%w: segment %s", apperrors.ErrNotFound, segmentID)
	}
	if err != nil {
		return domain.Segment{}, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

func (r *SQLiteSegmentRepository) InterruptionsForSession(ctx context.Context, sessionID string) ([]domain.Interruption, error) {
	return r.interruptions(ctx, `
SELECT i.id, i.segment_id, i.app_id, i.owner, i.timestamp, i.duration_secs
FROM interruptions i JOIN segments s ON s.id = i.segment_id
WHERE s.session_id = ?
ORDER BY i.timestamp`, sessionID)
}

func (r *SQLiteSegmentRepository) InterruptionsForSegment(ctx context.Context, segmentID string) ([]domain.Interruption, error) {
	return r.interruptions(ctx, `
SELECT id, segment_id, app_id, owner, timestamp, duration_secs
FROM interruptions WHERE segment_id = ? ORDER BY timestamp`, segmentID)
}

func (r *SQLiteSegmentRepository) UpdateSegmentSummary(ctx context.Context, segmentID, summary string) error {
	var affected int64
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `UPDATE segments SET summary = ? WHERE id = ?`, summary, segmentID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update segment summary: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: segment %s", apperrors.ErrNotFound, segmentID)
	}
	return nil
}

func (r *SQLiteSegmentRepository) interruptions(ctx context.Context, query string, arg string) ([]domain.Interruption, error) {
	var out []domain.Interruption
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var in domain.Interruption
			var ts int64
			if err := rows.Scan(&in.ID, &in.SegmentID, &in.AppID, &in.Owner, &ts, &in.DurationSecs); err != nil {
				return err
			}
			in.Timestamp = time.UnixMilli(ts).UTC()
			out = append(out, in)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list interruptions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSegment(row scanner) (domain.Segment, error) {
	var (
		seg                domain.Segment
		start, end, lastAt int64
		segType            string
	)
	err := row.Scan(&seg.ID, &seg.SessionID, &start, &end, &lastAt, &seg.DurationSecs,
		&seg.AppID, &seg.Owner, &seg.WindowTitle, &seg.ReadingCount, &seg.UniqueFingerprints,
		&seg.Scores.Duration, &seg.Scores.Stability, &seg.Scores.Visual, &seg.Scores.Recognition,
		&seg.Confidence, &seg.Transitioning, &segType, &seg.Summary)
	if err != nil {
		return domain.Segment{}, err
	}
	seg.Type = domain.SegmentType(segType)
	seg.Start = time.UnixMilli(start).UTC()
	seg.End = time.UnixMilli(end).UTC()
	seg.LastReadingAt = time.UnixMilli(lastAt).UTC()
	return seg, nil
}

func segmentType(seg domain.Segment) domain.SegmentType {
	if seg.Type != "" {
		return seg.Type
	}
	if seg.Transitioning {
		return domain.SegmentTransitioning
	}
	return domain.SegmentStable
}

func ms(t time.Time) int64 {
	return t.UTC().UnixMilli()
}
