package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process MetadataStore for tests and local
// development. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record // namespace -> key -> record
}

var _ MetadataStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]Record)}
}

// Upsert writes the record, replacing any existing one with the same key.
func (s *MemoryStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.records[rec.Namespace]
	if !ok {
		ns = make(map[string]Record)
		s.records[rec.Namespace] = ns
	}
	ns[rec.Key] = cloneRecord(rec)
	return nil
}

// Query returns all records in the namespace matching the filter.
func (s *MemoryStore) Query(_ context.Context, namespace string, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Record
	for _, rec := range s.records[namespace] {
		if filter.Matches(rec.Fields) {
			matched = append(matched, cloneRecord(rec))
		}
	}
	return matched, nil
}

// Get returns the record with the given key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, namespace, key string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[namespace][key]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func cloneRecord(rec Record) Record {
	fields := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		fields[k] = v
	}
	rec.Fields = fields
	return rec
}
