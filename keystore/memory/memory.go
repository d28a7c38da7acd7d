// Package memory provides a thread-safe in-memory key store, suitable for
// tests and single-run tooling.
package memory

import (
	"sync"

	"github.com/quicksandd/mirror/internal/util"
	"github.com/quicksandd/mirror/keystore"
)

// Store is a thread-safe in-memory implementation of keystore.Store.
type Store struct {
	opts keystore.Options
	mu   sync.RWMutex
	data map[string][]byte
}

var _ keystore.Store = (*Store)(nil)

// NewStore creates an empty in-memory key store.
func NewStore(opts ...keystore.Option) *Store {
	return &Store{
		opts: keystore.BuildOptions(opts...),
		data: make(map[string][]byte),
	}
}

func (s *Store) Get(reportID string) ([32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.data[reportID]
	if !ok {
		return [32]byte{}, keystore.ErrNotFound
	}
	priv, createdAt, err := keystore.DecodeEntry(data)
	if err != nil || s.opts.Expired(createdAt) {
		delete(s.data, reportID)
		return [32]byte{}, keystore.ErrNotFound
	}
	return priv, nil
}

func (s *Store) Put(reportID string, priv [32]byte) error {
	data, err := keystore.EncodeEntry(reportID, priv, s.opts.Now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[reportID] = data
	return nil
}

func (s *Store) Remove(reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[reportID]; !ok {
		return keystore.ErrNotFound
	}
	delete(s.data, reportID)
	return nil
}

func (s *Store) ListIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string][]byte)
	return nil
}

// put stores raw bytes without going through the entry codec. Test hook for
// exercising the not-usable path.
func (s *Store) put(reportID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[reportID] = util.CopyBytes(data)
}
