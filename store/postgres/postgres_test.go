package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/history"
	"github.com/oraclelang/oracle/limit"
)

// testPool connects to ORACLE_TEST_POSTGRES_DSN and drops the tables
// afterwards. Tests are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("ORACLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ORACLE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(ctx, `DROP TABLE IF EXISTS castings, usage_windows`)
		pool.Close()
	})
	pool.Exec(ctx, `DROP TABLE IF EXISTS castings, usage_windows`)
	return pool
}

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func testRecord(user string, i int) oracle.HistoryRecord {
	h, _ := oracle.HexagramByIndex(i%64 + 1)
	m, _ := oracle.NewMovingLines(i%6 + 1)
	at := t0.Add(time.Duration(i) * time.Minute)
	return oracle.HistoryRecord{
		User:      user,
		Question:  fmt.Sprintf("q%d", i),
		Result:    oracle.NewCastingResult(oracle.MethodDigit, "7 8 9", h, m, at),
		Summary:   fmt.Sprintf("summary %d", i),
		CreatedAt: at,
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := New(testPool(t), WithMaxRecords(3))
	if err := s.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	for i := 1; i <= 5; i++ {
		if err := s.Record(ctx, testRecord("u", i)); err != nil {
			t.Fatal(err)
		}
	}
	s.Record(ctx, testRecord("u", 0)) // older timestamp

	got, err := s.Recent(ctx, "u", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[0].Question != "q0" || got[2].Question != "q4" {
		t.Errorf("order = %s..%s", got[0].Question, got[2].Question)
	}
	if got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Error("created_at was not clamped")
	}
	want := testRecord("u", 5).Result
	if got[1].Result != want {
		t.Errorf("casting = %+v, want %+v", got[1].Result, want)
	}

	if _, err := s.Get(ctx, "u", 4); !errors.Is(err, history.ErrNotFound) {
		t.Errorf("Get(4) err = %v", err)
	}
	if err := s.Clear(ctx, "u"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Recent(ctx, "u", 5); len(got) != 0 {
		t.Errorf("after Clear: %d", len(got))
	}
}

func TestUsageConcurrent(t *testing.T) {
	ctx := context.Background()
	u := NewUsageStore(testPool(t))
	if err := u.Init(ctx); err != nil {
		t.Fatal(err)
	}
	l := limit.New(u, limit.Daily{}, 3)

	var g errgroup.Group
	allowed := make(chan struct{}, 20)
	for range 20 {
		g.Go(func() error {
			d, err := l.CheckAndConsume(ctx, "racer", t0)
			if err != nil {
				return err
			}
			if d.Allowed {
				allowed <- struct{}{}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if n := len(allowed); n != 3 {
		t.Errorf("allowed %d, want 3", n)
	}
	stats, err := l.Stats(ctx, t0)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsage != 3 || stats.Users != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}
