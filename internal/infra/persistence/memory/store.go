// Package memory provides a slice-backed survey store. It is the default in
// tests and serves the memory storage driver; records are returned in
// insertion order.
package memory

import (
	"context"
	"sync"

	"surveyscope/internal/survey"
)

// Compile-time contract assertion.
var _ survey.Store = (*Store)(nil)

// Store holds the dataset in memory. All mutation happens through Replace or
// LoadIfEmpty at boot; the read path only takes the read lock.
type Store struct {
	mu      sync.RWMutex
	records []survey.Record
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Replace discards any existing rows and installs the given records.
func (s *Store) Replace(_ context.Context, records []survey.Record) error {
	cp := make([]survey.Record, len(records))
	copy(cp, records)
	s.mu.Lock()
	s.records = cp
	s.mu.Unlock()
	return nil
}

// LoadIfEmpty installs the records only when the store holds none.
func (s *Store) LoadIfEmpty(ctx context.Context, records []survey.Record) (bool, error) {
	s.mu.Lock()
	if len(s.records) > 0 {
		s.mu.Unlock()
		return false, nil
	}
	cp := make([]survey.Record, len(records))
	copy(cp, records)
	s.records = cp
	s.mu.Unlock()
	return true, nil
}

// Query returns records matching every set field of the filter, in insertion order.
func (s *Store) Query(_ context.Context, filter survey.Filter) ([]survey.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []survey.Record{}
	for _, r := range s.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// All returns every record in insertion order.
func (s *Store) All(ctx context.Context) ([]survey.Record, error) {
	return s.Query(ctx, survey.Filter{})
}

// Distinct returns the sorted distinct non-empty values of the column.
func (s *Store) Distinct(_ context.Context, column string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return survey.DistinctValues(s.records, column), nil
}

// Count reports the number of loaded records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
