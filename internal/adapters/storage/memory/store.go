// Package memory provides an in-memory history store, used for tests and
// local development.
package memory

import (
	"context"
	"sync"

	"github.com/chronoslabs/chronos-engine/internal/domain"
)

type Store struct {
	mu      sync.RWMutex
	records map[domain.SessionID]*domain.SessionRecord
}

func NewStore() *Store {
	return &Store{
		records: make(map[domain.SessionID]*domain.SessionRecord),
	}
}

func (s *Store) SaveSession(_ context.Context, rec *domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *Store) ListSessions(_ context.Context) ([]*domain.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SessionRecord, 0, len(s.records))
	for _, rec := range s.records {
		result = append(result, cloneRecord(rec))
	}
	return result, nil
}

func (s *Store) DeleteSession(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
	return nil
}

func cloneRecord(rec *domain.SessionRecord) *domain.SessionRecord {
	cp := &domain.SessionRecord{
		ID:           rec.ID,
		Config:       rec.Config,
		LastModified: rec.LastModified,
		Messages:     make([]*domain.Message, len(rec.Messages)),
	}
	for i, m := range rec.Messages {
		mc := *m
		cp.Messages[i] = &mc
	}
	return cp
}
