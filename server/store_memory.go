package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/quicksandd/mirror/crypto"
	"github.com/quicksandd/mirror/report"
)

// MemoryRecordStore is an in-memory RecordStore for tests and throwaway runs.
type MemoryRecordStore struct {
	mu   sync.RWMutex
	data map[string]*Record
}

var _ RecordStore = (*MemoryRecordStore)(nil)

// NewMemoryRecordStore creates an empty in-memory record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{data: make(map[string]*Record)}
}

func (s *MemoryRecordStore) Create(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[rec.ID]; ok {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	cp := *rec
	s.data[rec.ID] = &cp
	return nil
}

func (s *MemoryRecordStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryRecordStore) MarkCompleted(id string, insights *crypto.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = report.StatusCompleted
	rec.Insights = insights
	rec.CompletedAt = time.Now().UTC()
	return nil
}

func (s *MemoryRecordStore) MarkError(id string, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[id]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = report.StatusError
	rec.ErrorMessage = msg
	rec.CompletedAt = time.Now().UTC()
	return nil
}
