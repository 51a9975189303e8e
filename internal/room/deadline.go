package room

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DeadlineStore persists one expiry deadline per room. It is the only state
// kept outside of process memory.
type DeadlineStore interface {
	// Get returns the room's deadline, if one is set.
	Get(ctx context.Context, room string) (time.Time, bool, error)
	// SetIfAbsent stores at unless the room already has a deadline, and
	// reports whether it was stored.
	SetIfAbsent(ctx context.Context, room string, at time.Time) (bool, error)
	Delete(ctx context.Context, room string) error
	// Due lists up to limit rooms whose deadline is at or before now, oldest
	// first.
	Due(ctx context.Context, now time.Time, limit int) ([]string, error)
}

var _ DeadlineStore = (*MemoryDeadlines)(nil)

// MemoryDeadlines keeps deadlines in process memory. Deadlines survive actor
// suspension but not a restart.
type MemoryDeadlines struct {
	mu sync.Mutex
	at map[string]time.Time
}

func NewMemoryDeadlines() *MemoryDeadlines {
	return &MemoryDeadlines{
		at: make(map[string]time.Time),
	}
}

func (m *MemoryDeadlines) Get(_ context.Context, room string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.at[room]
	return at, ok, nil
}

func (m *MemoryDeadlines) SetIfAbsent(_ context.Context, room string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.at[room]; ok {
		return false, nil
	}
	m.at[room] = at
	return true, nil
}

func (m *MemoryDeadlines) Delete(_ context.Context, room string) error {
	m.mu.Lock()
	delete(m.at, room)
	m.mu.Unlock()
	return nil
}

func (m *MemoryDeadlines) Due(_ context.Context, now time.Time, limit int) ([]string, error) {
	type entry struct {
		room string
		at   time.Time
	}

	m.mu.Lock()
	var due []entry
	for room, at := range m.at {
		if !at.After(now) {
			due = append(due, entry{room, at})
		}
	}
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	rooms := make([]string, len(due))
	for i, e := range due {
		rooms[i] = e.room
	}
	return rooms, nil
}
