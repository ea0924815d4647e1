// Package postgres implements history.Store and limit.Store using
// PostgreSQL.
//
// Both Store and UsageStore accept an externally-owned *pgxpool.Pool
// via constructor injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/history"
)

// Store implements history.Store backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

// pgConfig holds store configuration set via Option functions.
type pgConfig struct {
	maxRecords int
	logger     *slog.Logger
}

// Option configures a PostgreSQL Store or UsageStore.
type Option func(*pgConfig)

// WithMaxRecords caps how many castings are kept per user.
// Defaults to history.DefaultMaxRecords. Ignored by UsageStore.
func WithMaxRecords(n int) Option {
	return func(c *pgConfig) {
		if n > 0 {
			c.maxRecords = n
		}
	}
}

// WithLogger sets a structured logger. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) Option {
	return func(c *pgConfig) { c.logger = l }
}

func newConfig(opts []Option) pgConfig {
	cfg := pgConfig{maxRecords: history.DefaultMaxRecords, logger: nopLogger}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

var _ history.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	return &Store{pool: pool, cfg: newConfig(opts)}
}

// Init creates the castings table and its index.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS castings (
			seq BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			question TEXT NOT NULL,
			method TEXT NOT NULL,
			input TEXT NOT NULL,
			primary_lines SMALLINT NOT NULL,
			moving SMALLINT NOT NULL,
			cast_at BIGINT NOT NULL,
			summary TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS castings_user_idx ON castings(user_id, seq DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	s.cfg.logger.Info("postgres: init completed")
	return nil
}

// lockUser serializes writers of one user's rows until tx ends.
func lockUser(ctx context.Context, tx pgx.Tx, scope, user string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope+":"+user)
	return err
}

// Record appends a casting and trims the user's log to the cap, in one
// transaction. CreatedAt is raised to the previous record's if earlier.
func (s *Store) Record(ctx context.Context, rec oracle.HistoryRecord) error {
	start := time.Now()
	if rec.ID == "" {
		rec.ID = oracle.NewID()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := lockUser(ctx, tx, "castings", rec.User); err != nil {
		return fmt.Errorf("postgres: lock user: %w", err)
	}

	var last int64
	err = tx.QueryRow(ctx,
		`SELECT created_at FROM castings WHERE user_id = $1 ORDER BY seq DESC LIMIT 1`,
		rec.User).Scan(&last)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: read last casting: %w", err)
	}
	createdAt := unixNano(rec.CreatedAt)
	if createdAt < last {
		createdAt = last
	}

	res := rec.Result
	_, err = tx.Exec(ctx,
		`INSERT INTO castings (id, user_id, question, method, input, primary_lines, moving, cast_at, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.User, rec.Question, string(res.Method), res.Input,
		int16(res.Primary.Bits()), int16(res.Moving), unixNano(res.CastAt), rec.Summary, createdAt)
	if err != nil {
		return fmt.Errorf("postgres: insert casting: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM castings WHERE user_id = $1 AND seq NOT IN (
			SELECT seq FROM castings WHERE user_id = $1 ORDER BY seq DESC LIMIT $2
		)`, rec.User, s.cfg.maxRecords)
	if err != nil {
		return fmt.Errorf("postgres: trim castings: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	s.cfg.logger.Debug("postgres: record casting ok", "id", rec.ID, "trimmed", tag.RowsAffected(), "duration", time.Since(start))
	return nil
}

const castingColumns = `id, user_id, question, method, input, primary_lines, moving, cast_at, summary, created_at`

// Recent returns at most limit castings of user, newest first.
func (s *Store) Recent(ctx context.Context, user string, limit int) ([]oracle.HistoryRecord, error) {
	if limit <= 0 {
		return []oracle.HistoryRecord{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+castingColumns+` FROM castings WHERE user_id = $1 ORDER BY seq DESC LIMIT $2`,
		user, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent castings: %w", err)
	}
	defer rows.Close()

	records := []oracle.HistoryRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan casting: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the n-th most recent casting of user (1 is the newest).
func (s *Store) Get(ctx context.Context, user string, n int) (oracle.HistoryRecord, error) {
	if n < 1 {
		return oracle.HistoryRecord{}, history.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+castingColumns+` FROM castings WHERE user_id = $1 ORDER BY seq DESC LIMIT 1 OFFSET $2`,
		user, n-1)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return oracle.HistoryRecord{}, history.ErrNotFound
	}
	if err != nil {
		return oracle.HistoryRecord{}, fmt.Errorf("postgres: get casting: %w", err)
	}
	return r, nil
}

func (s *Store) Clear(ctx context.Context, user string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM castings WHERE user_id = $1`, user)
	if err != nil {
		return fmt.Errorf("postgres: clear castings: %w", err)
	}
	s.cfg.logger.Info("postgres: castings cleared", "user", user, "deleted", tag.RowsAffected())
	return nil
}

// Close is a no-op. The caller owns the pool.
func (s *Store) Close() error {
	return nil
}

func scanRecord(row pgx.Row) (oracle.HistoryRecord, error) {
	var (
		r                 oracle.HistoryRecord
		method, input     string
		lines, moving     int16
		castAt, createdAt int64
	)
	if err := row.Scan(&r.ID, &r.User, &r.Question, &method, &input, &lines, &moving, &castAt, &r.Summary, &createdAt); err != nil {
		return oracle.HistoryRecord{}, err
	}
	r.Result = oracle.NewCastingResult(oracle.Method(method), input,
		oracle.HexagramFromBits(uint8(lines)), oracle.MovingLines(moving), fromUnixNano(castAt))
	r.CreatedAt = fromUnixNano(createdAt)
	return r, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
