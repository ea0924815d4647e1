// Package sqlite implements the history and usage stores on pure-Go
// SQLite. Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/history"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store.
// When set, the store emits debug logs for every operation including
// timing, row counts, and key parameters. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMaxRecords caps how many castings are kept per user.
// Defaults to history.DefaultMaxRecords.
func WithMaxRecords(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.max = n
		}
	}
}

// Store implements history.Store backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	max    int
	logger *slog.Logger
}

var _ history.Store = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, max: history.DefaultMaxRecords, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the castings table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	s.logger.Debug("sqlite: init started")
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS castings (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		question TEXT NOT NULL,
		method TEXT NOT NULL,
		input TEXT NOT NULL,
		primary_lines INTEGER NOT NULL,
		moving INTEGER NOT NULL,
		cast_at INTEGER NOT NULL,
		summary TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	_, _ = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_castings_user ON castings(user_id, seq)`)

	s.logger.Info("sqlite: init completed", "duration", time.Since(start))
	return nil
}

// Record appends a casting and trims the user's log to the cap, in one
// transaction. CreatedAt is raised to the previous record's if earlier.
func (s *Store) Record(ctx context.Context, rec oracle.HistoryRecord) error {
	start := time.Now()
	if rec.ID == "" {
		rec.ID = oracle.NewID()
	}
	s.logger.Debug("sqlite: record casting", "id", rec.ID, "user", rec.User, "method", rec.Result.Method)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM castings WHERE user_id = ? ORDER BY seq DESC LIMIT 1`,
		rec.User,
	).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read last casting: %w", err)
	}
	createdAt := unixNano(rec.CreatedAt)
	if last.Valid && createdAt < last.Int64 {
		createdAt = last.Int64
	}

	res := rec.Result
	_, err = tx.ExecContext(ctx,
		`INSERT INTO castings (id, user_id, question, method, input, primary_lines, moving, cast_at, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.User, rec.Question, string(res.Method), res.Input,
		int(res.Primary.Bits()), int(res.Moving), unixNano(res.CastAt), rec.Summary, createdAt,
	)
	if err != nil {
		s.logger.Error("sqlite: insert casting failed", "id", rec.ID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("insert casting: %w", err)
	}

	trimmed, err := tx.ExecContext(ctx,
		`DELETE FROM castings WHERE user_id = ? AND seq NOT IN (
			SELECT seq FROM castings WHERE user_id = ? ORDER BY seq DESC LIMIT ?
		)`,
		rec.User, rec.User, s.max,
	)
	if err != nil {
		return fmt.Errorf("trim castings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	n, _ := trimmed.RowsAffected()
	s.logger.Debug("sqlite: record casting ok", "id", rec.ID, "trimmed", n, "duration", time.Since(start))
	return nil
}

// Recent returns at most limit castings of user, newest first.
func (s *Store) Recent(ctx context.Context, user string, limit int) ([]oracle.HistoryRecord, error) {
	if limit <= 0 {
		return []oracle.HistoryRecord{}, nil
	}
	start := time.Now()
	s.logger.Debug("sqlite: recent castings", "user", user, "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, question, method, input, primary_lines, moving, cast_at, summary, created_at
		 FROM castings
		 WHERE user_id = ?
		 ORDER BY seq DESC
		 LIMIT ?`,
		user, limit,
	)
	if err != nil {
		s.logger.Error("sqlite: recent castings failed", "user", user, "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("recent castings: %w", err)
	}
	defer rows.Close()

	records := []oracle.HistoryRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan casting: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate castings: %w", err)
	}

	s.logger.Debug("sqlite: recent castings ok", "user", user, "count", len(records), "duration", time.Since(start))
	return records, nil
}

// Get returns the n-th most recent casting of user (1 is the newest).
func (s *Store) Get(ctx context.Context, user string, n int) (oracle.HistoryRecord, error) {
	if n < 1 {
		return oracle.HistoryRecord{}, history.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, question, method, input, primary_lines, moving, cast_at, summary, created_at
		 FROM castings
		 WHERE user_id = ?
		 ORDER BY seq DESC
		 LIMIT 1 OFFSET ?`,
		user, n-1,
	)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return oracle.HistoryRecord{}, history.ErrNotFound
	}
	if err != nil {
		return oracle.HistoryRecord{}, fmt.Errorf("get casting: %w", err)
	}
	return r, nil
}

// Clear deletes every casting of user.
func (s *Store) Clear(ctx context.Context, user string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM castings WHERE user_id = ?`, user)
	if err != nil {
		return fmt.Errorf("clear castings: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("sqlite: castings cleared", "user", user, "deleted", n)
	return nil
}

// DB returns the underlying *sql.DB for sharing with UsageStore.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.logger.Debug("sqlite: closing store")
	err := s.db.Close()
	if err != nil {
		s.logger.Error("sqlite: close failed", "error", err)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (oracle.HistoryRecord, error) {
	var (
		r                 oracle.HistoryRecord
		method, input     string
		lines, moving     int
		castAt, createdAt int64
	)
	if err := sc.Scan(&r.ID, &r.User, &r.Question, &method, &input, &lines, &moving, &castAt, &r.Summary, &createdAt); err != nil {
		return oracle.HistoryRecord{}, err
	}
	r.Result = oracle.NewCastingResult(oracle.Method(method), input,
		oracle.HexagramFromBits(uint8(lines)), oracle.MovingLines(moving), fromUnixNano(castAt))
	r.CreatedAt = fromUnixNano(createdAt)
	return r, nil
}

// unixNano stores the zero time as 0; time.Time{}.UnixNano overflows.
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
