package dummystore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/escolabr/escola/store"
)

// Store is an in-memory store.Client for tests and local development.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]store.Row
	errs   map[string]error
}

var _ store.Client = (*Store)(nil) // interface compliance check

func Open() *Store {
	return &Store{
		tables: make(map[string][]store.Row),
		errs:   make(map[string]error),
	}
}

// SetError forces every subsequent operation on table to fail with err.
// Pass a nil err to clear it.
func (s *Store) SetError(table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, table)
		return
	}
	s.errs[table] = err
}

func (s *Store) Select(_ context.Context, table string, filter store.Filter) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.errs[table]; err != nil {
		return nil, err
	}
	var rows []store.Row
	for _, row := range s.tables[table] {
		if filter.Matches(row) {
			rows = append(rows, row.Clone())
		}
	}
	return rows, nil
}

func (s *Store) Insert(_ context.Context, table string, rows []store.Row) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs[table]; err != nil {
		return nil, err
	}
	inserted := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		stored := row.Clone()
		if stored.String("id") == "" {
			stored["id"] = uuid.New().String()
		}
		s.tables[table] = append(s.tables[table], stored)
		inserted = append(inserted, stored.Clone())
	}
	return inserted, nil
}

func (s *Store) Update(_ context.Context, table string, patch store.Row, filter store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs[table]; err != nil {
		return err
	}
	for _, row := range s.tables[table] {
		if !filter.Matches(row) {
			continue
		}
		for col, val := range patch {
			row[col] = val
		}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, table string, filter store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs[table]; err != nil {
		return err
	}
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !filter.Matches(row) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	return nil
}
