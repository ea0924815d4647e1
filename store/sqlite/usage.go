package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/limit"
)

// UsageStoreOption configures a SQLite UsageStore.
type UsageStoreOption func(*UsageStore)

// WithUsageLogger sets a structured logger for the usage store.
// If not set, no logs are emitted.
func WithUsageLogger(l *slog.Logger) UsageStoreOption {
	return func(s *UsageStore) { s.logger = l }
}

// UsageStore implements limit.Store backed by SQLite.
//
// Use NewUsageStore with a shared *sql.DB from Store.DB() so both
// Store and UsageStore share the same serialized connection. With a
// single connection, each Update transaction runs alone.
type UsageStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ limit.Store = (*UsageStore)(nil)

// NewUsageStore creates a UsageStore using an existing *sql.DB.
// Pass store.DB() to share the same connection as Store.
func NewUsageStore(db *sql.DB, opts ...UsageStoreOption) *UsageStore {
	s := &UsageStore{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates the usage_windows table.
func (s *UsageStore) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: usage init started")
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS usage_windows (
		user_id TEXT PRIMARY KEY,
		window_start INTEGER NOT NULL,
		window_end INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		quota INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		s.logger.Error("sqlite: usage init failed", "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Info("sqlite: usage init completed", "duration", time.Since(start))
	return nil
}

// Update reads, transforms and writes the user's window in one transaction.
func (s *UsageStore) Update(ctx context.Context, user string, fn func(oracle.UsageWindow, bool) (oracle.UsageWindow, error)) (oracle.UsageWindow, error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	w, ok, err := getWindow(ctx, tx, user)
	if err != nil {
		return oracle.UsageWindow{}, err
	}
	w, err = fn(w, ok)
	if err != nil {
		return oracle.UsageWindow{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO usage_windows (user_id, window_start, window_end, count, quota)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			count = excluded.count,
			quota = excluded.quota`,
		user, unixNano(w.Start), unixNano(w.End), w.Count, w.Quota,
	)
	if err != nil {
		s.logger.Error("sqlite: update usage failed", "user", user, "error", err, "duration", time.Since(start))
		return oracle.UsageWindow{}, fmt.Errorf("upsert usage: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: update usage ok", "user", user, "count", w.Count, "duration", time.Since(start))
	return w, nil
}

func (s *UsageStore) Get(ctx context.Context, user string) (oracle.UsageWindow, bool, error) {
	return getWindow(ctx, s.db, user)
}

// List returns every stored window ordered by user.
func (s *UsageStore) List(ctx context.Context) ([]oracle.UsageWindow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, window_start, window_end, count, quota FROM usage_windows ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var out []oracle.UsageWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getWindow(ctx context.Context, q querier, user string) (oracle.UsageWindow, bool, error) {
	row := q.QueryRowContext(ctx,
		`SELECT user_id, window_start, window_end, count, quota FROM usage_windows WHERE user_id = ?`, user)
	w, err := scanWindow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.UsageWindow{}, false, nil
	}
	if err != nil {
		return oracle.UsageWindow{}, false, fmt.Errorf("get usage: %w", err)
	}
	return w, true, nil
}

func scanWindow(sc scanner) (oracle.UsageWindow, error) {
	var (
		w          oracle.UsageWindow
		start, end int64
	)
	if err := sc.Scan(&w.User, &start, &end, &w.Count, &w.Quota); err != nil {
		return oracle.UsageWindow{}, err
	}
	w.Start, w.End = fromUnixNano(start), fromUnixNano(end)
	return w, nil
}
