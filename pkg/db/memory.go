package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps records in process memory. It backs --no-history runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, rec Record) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	rec = cloneRecord(rec)
	rec.Key = key
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	m.records[key] = rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(keys) == 0 {
		n := int64(len(m.records))
		m.records = make(map[string]Record)
		return n, nil
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.records[k]; ok {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }

// cloneRecord copies the slices and timestamp pointer so callers never share state with the map.
func cloneRecord(rec Record) Record {
	if rec.Status.CompletedAt != nil {
		t := *rec.Status.CompletedAt
		rec.Status.CompletedAt = &t
	}
	if rec.Entry.ExampleSentences != nil {
		rec.Entry.ExampleSentences = append([]string(nil), rec.Entry.ExampleSentences...)
	}
	if rec.Entry.ImageFiles != nil {
		rec.Entry.ImageFiles = append([]string(nil), rec.Entry.ImageFiles...)
	}
	return rec
}
