package limit

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	oracle "github.com/oraclelang/oracle"
)

// MemoryStore keeps usage windows in process memory. Updates for one user
// are serialized by a per-user mutex; different users never contend.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memEntry
}

type memEntry struct {
	mu sync.Mutex
	w  oracle.UsageWindow
	ok bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*memEntry)}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) entry(user string) *memEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[user]
	if !ok {
		e = &memEntry{}
		s.users[user] = e
	}
	return e
}

func (s *MemoryStore) Update(ctx context.Context, user string, fn func(oracle.UsageWindow, bool) (oracle.UsageWindow, error)) (oracle.UsageWindow, error) {
	if err := ctx.Err(); err != nil {
		return oracle.UsageWindow{}, err
	}
	e := s.entry(user)
	e.mu.Lock()
	defer e.mu.Unlock()
	w, err := fn(e.w, e.ok)
	if err != nil {
		return oracle.UsageWindow{}, err
	}
	e.w, e.ok = w, true
	return w, nil
}

func (s *MemoryStore) Get(_ context.Context, user string) (oracle.UsageWindow, bool, error) {
	s.mu.Lock()
	e, ok := s.users[user]
	s.mu.Unlock()
	if !ok {
		return oracle.UsageWindow{}, false, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.w, e.ok, nil
}

// List returns every stored window ordered by user.
func (s *MemoryStore) List(_ context.Context) ([]oracle.UsageWindow, error) {
	s.mu.Lock()
	entries := make([]*memEntry, 0, len(s.users))
	for _, e := range s.users {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	out := make([]oracle.UsageWindow, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if e.ok {
			out = append(out, e.w)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out, nil
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
