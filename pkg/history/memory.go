package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory. Useful for testing and for
// ephemeral deployments that do not need run history across restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Save persists one record.
func (m *MemoryStore) Save(_ context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy so callers cannot mutate saved records.
	recordCopy := *record
	m.records[record.ID] = &recordCopy
	return nil
}

// List returns records ordered newest first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		recordCopy := *rec
		results = append(results, &recordCopy)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Get returns the record with the given ID.
func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	recordCopy := *rec
	return &recordCopy, nil
}

// Prune deletes records started before the cutoff.
func (m *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pruned int64
	for id, rec := range m.records {
		if rec.StartedAt.Before(olderThan) {
			delete(m.records, id)
			pruned++
		}
	}
	return pruned, nil
}

// Close releases the store's resources.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*Record)
	return nil
}

// Size returns the number of stored records. Useful for testing.
func (m *MemoryStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
