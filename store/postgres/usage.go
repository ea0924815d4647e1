package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/limit"
)

// UsageStore implements limit.Store backed by PostgreSQL. Each Update
// holds a per-user advisory lock and the row lock for its transaction,
// so concurrent requests of one user are decided one at a time.
type UsageStore struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

var _ limit.Store = (*UsageStore)(nil)

// NewUsageStore creates a UsageStore using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func NewUsageStore(pool *pgxpool.Pool, opts ...Option) *UsageStore {
	return &UsageStore{pool: pool, cfg: newConfig(opts)}
}

// Init creates the usage_windows table.
func (s *UsageStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS usage_windows (
		user_id TEXT PRIMARY KEY,
		window_start BIGINT NOT NULL,
		window_end BIGINT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		quota INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		return fmt.Errorf("postgres: usage init: %w", err)
	}
	return nil
}

const usageColumns = `user_id, window_start, window_end, count, quota`

func (s *UsageStore) Update(ctx context.Context, user string, fn func(oracle.UsageWindow, bool) (oracle.UsageWindow, error)) (oracle.UsageWindow, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The advisory lock covers users without a row yet; FOR UPDATE alone
	// would let two first requests both see nothing.
	if err := lockUser(ctx, tx, "usage", user); err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("postgres: lock user: %w", err)
	}
	w, err := scanWindow(tx.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM usage_windows WHERE user_id = $1 FOR UPDATE`, user))
	ok := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return oracle.UsageWindow{}, fmt.Errorf("postgres: get usage: %w", err)
	}

	w, err = fn(w, ok)
	if err != nil {
		return oracle.UsageWindow{}, err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO usage_windows (`+usageColumns+`) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			window_start = EXCLUDED.window_start,
			window_end = EXCLUDED.window_end,
			count = EXCLUDED.count,
			quota = EXCLUDED.quota`,
		user, unixNano(w.Start), unixNano(w.End), w.Count, w.Quota)
	if err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("postgres: upsert usage: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return oracle.UsageWindow{}, fmt.Errorf("postgres: commit: %w", err)
	}
	s.cfg.logger.Debug("postgres: update usage ok", "user", user, "count", w.Count)
	return w, nil
}

func (s *UsageStore) Get(ctx context.Context, user string) (oracle.UsageWindow, bool, error) {
	w, err := scanWindow(s.pool.QueryRow(ctx,
		`SELECT `+usageColumns+` FROM usage_windows WHERE user_id = $1`, user))
	if errors.Is(err, pgx.ErrNoRows) {
		return oracle.UsageWindow{}, false, nil
	}
	if err != nil {
		return oracle.UsageWindow{}, false, fmt.Errorf("postgres: get usage: %w", err)
	}
	return w, true, nil
}

func (s *UsageStore) List(ctx context.Context) ([]oracle.UsageWindow, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+usageColumns+` FROM usage_windows ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list usage: %w", err)
	}
	defer rows.Close()

	var out []oracle.UsageWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan usage: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWindow(row pgx.Row) (oracle.UsageWindow, error) {
	var (
		w          oracle.UsageWindow
		start, end int64
		count      int32
		quota      int32
	)
	if err := row.Scan(&w.User, &start, &end, &count, &quota); err != nil {
		return oracle.UsageWindow{}, err
	}
	w.Start, w.End = fromUnixNano(start), fromUnixNano(end)
	w.Count, w.Quota = int(count), int(quota)
	return w, nil
}
