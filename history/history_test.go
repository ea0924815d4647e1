package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	oracle "github.com/oraclelang/oracle"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func record(user string, i int) oracle.HistoryRecord {
	return oracle.HistoryRecord{
		User:      user,
		Question:  fmt.Sprintf("q%d", i),
		CreatedAt: t0.Add(time.Duration(i) * time.Minute),
	}
}

func TestRecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20)
	for i := 1; i <= 7; i++ {
		if err := m.Record(ctx, record("u", i)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := m.Recent(ctx, "u", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d records, want 5", len(got))
	}
	for i, r := range got {
		if want := fmt.Sprintf("q%d", 7-i); r.Question != want {
			t.Errorf("record %d = %s, want %s", i, r.Question, want)
		}
		if r.ID == "" {
			t.Errorf("record %d has no ID", i)
		}
	}
}

func TestRecentEdgeCases(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20)
	m.Record(ctx, record("u", 1))

	if got, _ := m.Recent(ctx, "nobody", 5); len(got) != 0 {
		t.Errorf("unknown user: %d records", len(got))
	}
	if got, _ := m.Recent(ctx, "u", 0); got == nil || len(got) != 0 {
		t.Errorf("limit 0: %v", got)
	}
	if got, _ := m.Recent(ctx, "u", 10); len(got) != 1 {
		t.Errorf("limit above size: %d records", len(got))
	}
}

func TestUserIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20)
	m.Record(ctx, record("alice", 1))
	m.Record(ctx, record("bob", 2))

	got, _ := m.Recent(ctx, "alice", 5)
	if len(got) != 1 || got[0].User != "alice" {
		t.Errorf("alice sees %+v", got)
	}
}

func TestCapDropsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	for i := 1; i <= 5; i++ {
		m.Record(ctx, record("u", i))
	}
	got, _ := m.Recent(ctx, "u", 10)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if got[2].Question != "q3" {
		t.Errorf("oldest kept = %s, want q3", got[2].Question)
	}
}

func TestCreatedAtClamped(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20)
	m.Record(ctx, record("u", 10))
	m.Record(ctx, record("u", 5)) // clock went backwards

	got, _ := m.Recent(ctx, "u", 2)
	if got[0].CreatedAt.Before(got[1].CreatedAt) {
		t.Errorf("timestamps decrease: %v then %v", got[1].CreatedAt, got[0].CreatedAt)
	}
}

func TestGetAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(20)
	for i := 1; i <= 3; i++ {
		m.Record(ctx, record("u", i))
	}

	r, err := m.Get(ctx, "u", 1)
	if err != nil || r.Question != "q3" {
		t.Errorf("Get(1) = %+v, %v", r, err)
	}
	r, err = m.Get(ctx, "u", 3)
	if err != nil || r.Question != "q1" {
		t.Errorf("Get(3) = %+v, %v", r, err)
	}
	if _, err := m.Get(ctx, "u", 4); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(4) err = %v", err)
	}

	if err := m.Clear(ctx, "u"); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Recent(ctx, "u", 5); len(got) != 0 {
		t.Errorf("after Clear: %d records", len(got))
	}
}

func TestConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(1000)
	var g errgroup.Group
	for i := range 100 {
		g.Go(func() error { return m.Record(ctx, record("u", i)) })
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	got, _ := m.Recent(ctx, "u", 1000)
	if len(got) != 100 {
		t.Fatalf("got %d records, want 100", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Fatalf("record %d is newer than record %d", i, i-1)
		}
	}
}
