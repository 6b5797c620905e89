package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "focustrail/internal/platform/errors"

	_ "modernc.org/sqlite"
)

// Store owns the only database handle. Callers submit closures that run on
// the store goroutine one at a time and wait for their reply.
type Store struct {
	db       *sql.DB
	requests chan request
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

type request struct {
	ctx   context.Context
	fn    func(context.Context, *sql.DB) error
	reply chan error
}

// Open opens the SQLite database at path (":memory:" is allowed), applies the
// schema migrations and starts the store goroutine.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if err := migrate(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		db:       db,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Do runs fn on the store goroutine. A request whose context is already done
// when it reaches the front of the queue is rejected without running.
func (s *Store) Do(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	req := request{ctx: ctx, fn: fn, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.quit:
		return apperrors.ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-req.reply
}

// Close stops the store goroutine and closes the database.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.quit)
		<-s.done
		err = s.db.Close()
	})
	return err
}

func (s *Store) run() {
	defer close(s.done)
	for {
		select {
		case req := <-s.requests:
			req.reply <- s.handle(req)
		case <-s.quit:
			return
		}
	}
}

func (s *Store) handle(req request) (err error) {
	if ctxErr := req.ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("store request panic: %v", r)
		}
	}()
	return req.fn(req.ctx, s.db)
}
