// Package history keeps a bounded, append-only log of castings per user.
package history

import (
	"context"
	"errors"
	"sync"

	oracle "github.com/oraclelang/oracle"
)

const (
	// DefaultMaxRecords is how many castings are kept per user.
	DefaultMaxRecords = 20
	// DefaultRecentLimit is how many castings the history command shows.
	DefaultRecentLimit = 5
)

// ErrNotFound is returned by Get for a position past the user's log.
var ErrNotFound = errors.New("history record not found")

// Store is a HistoryStore with the lookup and admin operations every
// backend provides.
type Store interface {
	oracle.HistoryStore
	// Get returns the n-th most recent record (1 is the newest).
	Get(ctx context.Context, user string, n int) (oracle.HistoryRecord, error)
	// Clear deletes every record of user.
	Clear(ctx context.Context, user string) error
}

// Memory is an in-process Store.
type Memory struct {
	mu    sync.Mutex
	max   int
	users map[string][]oracle.HistoryRecord // oldest first
}

// NewMemory keeps at most max records per user; max <= 0 means
// DefaultMaxRecords.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = DefaultMaxRecords
	}
	return &Memory{max: max, users: make(map[string][]oracle.HistoryRecord)}
}

var _ Store = (*Memory)(nil)

// Record appends rec to its user's log, dropping the oldest records past
// the cap. CreatedAt is raised to the previous record's if it is earlier.
func (m *Memory) Record(_ context.Context, rec oracle.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = oracle.NewID()
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.users[rec.User]
	if n := len(log); n > 0 && rec.CreatedAt.Before(log[n-1].CreatedAt) {
		rec.CreatedAt = log[n-1].CreatedAt
	}
	log = append(log, rec)
	if len(log) > m.max {
		log = append([]oracle.HistoryRecord(nil), log[len(log)-m.max:]...)
	}
	m.users[rec.User] = log
	return nil
}

// Recent returns at most limit records, newest first.
func (m *Memory) Recent(_ context.Context, user string, limit int) ([]oracle.HistoryRecord, error) {
	if limit <= 0 {
		return []oracle.HistoryRecord{}, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.users[user]
	out := make([]oracle.HistoryRecord, 0, min(limit, len(log)))
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, user string, n int) (oracle.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.users[user]
	if n < 1 || n > len(log) {
		return oracle.HistoryRecord{}, ErrNotFound
	}
	return log[len(log)-n], nil
}

func (m *Memory) Clear(_ context.Context, user string) error {
	m.mu.Lock()
	delete(m.users, user)
	m.mu.Unlock()
	return nil
}
