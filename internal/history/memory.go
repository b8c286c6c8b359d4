// Package history stores a log of completed merges.
//
// MemoryStore keeps a bounded in-process log and is used when no database
// is configured. PostgresStore persists the log in the merge_history table.
// Both implement core.HistoryRecorder.
package history

import (
	"context"
	"slices"
	"sync"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// Store is the history backend selected at startup.
type Store = core.HistoryRecorder

// DefaultCapacity is how many merges a MemoryStore keeps.
const DefaultCapacity = 100

// DefaultLimit is the number of entries Recent returns for a non-positive limit.
const DefaultLimit = 20

// MemoryStore is a fixed-size ring of recent merges.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []core.MergeRecord
	next    int
	full    bool
}

// NewMemoryStore creates a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{entries: make([]core.MergeRecord, capacity)}
}

// Record adds rec, evicting the oldest entry when full.
func (m *MemoryStore) Record(_ context.Context, rec core.MergeRecord) error {
	rec.FileNames = slices.Clone(rec.FileNames)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = rec
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryStore) Recent(_ context.Context, limit int) ([]core.MergeRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	size := m.next
	if m.full {
		size = len(m.entries)
	}
	n := min(limit, size)

	out := make([]core.MergeRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}
