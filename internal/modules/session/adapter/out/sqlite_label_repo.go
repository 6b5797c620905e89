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
	"focustrail/internal/platform/tx"
)

const labelColumns = `id, name, color, order_index, created_at, updated_at`

type SQLiteLabelRepository struct {
	store *store.Store
}

func NewSQLiteLabelRepository(s *store.Store) sessionout.LabelRepository {
	return &SQLiteLabelRepository{store: s}
}

// CreateLabel assigns the smallest free order index. The count check and the
// insert share a transaction so concurrent creates cannot exceed the cap.
func (r *SQLiteLabelRepository) CreateLabel(ctx context.Context, label domain.Label) (domain.Label, error) {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			existing, err := queryLabels(ctx, t)
			if err != nil {
				return err
			}
			if len(existing) >= domain.MaxLabels {
				return fmt.Errorf("%w: at most %d labels", apperrors.ErrLabelLimitReached, domain.MaxLabels)
			}
			if err := checkNameFree(ctx, t, label.Name, ""); err != nil {
				return err
			}
			label.OrderIndex = domain.NextOrderIndex(existing)
			_, err = t.ExecContext(ctx, `INSERT INTO labels(`+labelColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
				label.ID, label.Name, label.Color, label.OrderIndex, ms(label.CreatedAt), ms(label.UpdatedAt))
			return err
		})
	})
	if err != nil {
		return domain.Label{}, fmt.Errorf("create label %q: %w", label.Name, err)
	}
	return label, nil
}

func (r *SQLiteLabelRepository) ListLabels(ctx context.Context) ([]domain.Label, error) {
	var out []domain.Label
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		labels, err := queryLabels(ctx, db)
		out = labels
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return out, nil
}

func (r *SQLiteLabelRepository) GetLabel(ctx context.Context, labelID string) (domain.Label, error) {
	var out domain.Label
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		l, err := scanLabel(db.QueryRowContext(ctx, `SELECT `+labelColumns+` FROM labels WHERE id = ?`, labelID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		out = l
		return err
	})
	if err != nil {
		return domain.Label{}, fmt.Errorf("get label %s: %w", labelID, err)
	}
	return out, nil
}

func (r *SQLiteLabelRepository) UpdateLabel(ctx context.Context, label domain.Label) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			if err := checkNameFree(ctx, t, label.Name, label.ID); err != nil {
				return err
			}
			res, err := t.ExecContext(ctx, `UPDATE labels SET name = ?, color = ?, updated_at = ? WHERE id = ?`,
				label.Name, label.Color, ms(label.UpdatedAt), label.ID)
			if err != nil {
				return err
			}
			return requireRow(res)
		})
	})
	if err != nil {
		return fmt.Errorf("update label %s: %w", label.ID, err)
	}
	return nil
}

func (r *SQLiteLabelRepository) DeleteLabel(ctx context.Context, labelID string) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			if _, err := t.ExecContext(ctx, `UPDATE sessions SET label_id = NULL WHERE label_id = ?`, labelID); err != nil {
				return err
			}
			res, err := t.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, labelID)
			if err != nil {
				return err
			}
			return requireRow(res)
		})
	})
	if err != nil {
		return fmt.Errorf("delete label %s: %w", labelID, err)
	}
	return nil
}

func (r *SQLiteLabelRepository) SetSessionLabel(ctx context.Context, sessionID, labelID string, updatedAt time.Time) error {
	err := r.store.Do(ctx, func(ctx context.Context, db *sql.DB) error {
		return tx.Run(ctx, db, func(t *sql.Tx) error {
			value := sql.NullString{String: labelID, Valid: labelID != ""}
			if value.Valid {
				var found int
				err := t.QueryRowContext(ctx, `SELECT 1 FROM labels WHERE id = ?`, labelID).Scan(&found)
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("label %s: %w", labelID, apperrors.ErrNotFound)
				}
				if err != nil {
					return err
				}
			}
			res, err := t.ExecContext(ctx, `UPDATE sessions SET label_id = ?, updated_at = ? WHERE id = ?`, value, ms(updatedAt), sessionID)
			if err != nil {
				return err
			}
			return requireRow(res)
		})
	})
	if err != nil {
		return fmt.Errorf("set label on session %s: %w", sessionID, err)
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryLabels(ctx context.Context, q queryer) ([]domain.Label, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+labelColumns+` FROM labels ORDER BY order_index, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// checkNameFree reports ErrLabelExists when another label already uses name,
// ignoring case.
func checkNameFree(ctx context.Context, t *sql.Tx, name, selfID string) error {
	var id string
	err := t.QueryRowContext(ctx, `SELECT id FROM labels WHERE name = ? COLLATE NOCASE AND id != ?`, name, selfID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: %q", apperrors.ErrLabelExists, name)
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanLabel(row rowScanner) (domain.Label, error) {
	var (
		l                    domain.Label
		createdAt, updatedAt int64
	)
	if err := row.Scan(&l.ID, &l.Name, &l.Color, &l.OrderIndex, &createdAt, &updatedAt); err != nil {
		return domain.Label{}, err
	}
	l.CreatedAt = time.UnixMilli(createdAt).UTC()
	l.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return l, nil
}
