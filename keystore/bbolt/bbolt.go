// Package bbolt provides a persistent key store backed by a BBolt database,
// the durable analogue of the browser's per-origin key-value storage.
package bbolt

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/quicksandd/mirror/keystore"
)

var keysBucket = []byte("report_keys")

// Store implements keystore.Store backed by a BBolt database.
type Store struct {
	opts keystore.Options
	db   *bbolt.DB
}

var _ keystore.Store = (*Store)(nil)

// NewStore returns a key store backed by the given BBolt database.
func NewStore(db *bbolt.DB, opts ...keystore.Option) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(keysBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating keys bucket: %w", err)
	}
	return &Store{opts: keystore.BuildOptions(opts...), db: db}, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a
// new key store.
func NewStoreFromFile(path string, options *bbolt.Options, opts ...keystore.Option) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewStore(db, opts...)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(reportID string) ([32]byte, error) {
	var priv [32]byte
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(keysBucket)
		data := b.Get([]byte(reportID))
		if data == nil {
			return keystore.ErrNotFound
		}
		p, createdAt, err := keystore.DecodeEntry(data)
		if err != nil || s.opts.Expired(createdAt) {
			// Lazy eviction: unusable or expired entries are removed on read.
			if delErr := b.Delete([]byte(reportID)); delErr != nil {
				return delErr
			}
			return keystore.ErrNotFound
		}
		priv = p
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	return priv, nil
}

func (s *Store) Put(reportID string, priv [32]byte) error {
	data, err := keystore.EncodeEntry(reportID, priv, s.opts.Now())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(keysBucket).Put([]byte(reportID), data)
	})
}

func (s *Store) Remove(reportID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(keysBucket)
		if b.Get([]byte(reportID)) == nil {
			return keystore.ErrNotFound
		}
		return b.Delete([]byte(reportID))
	})
}

func (s *Store) ListIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(keysBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

func (s *Store) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(keysBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(keysBucket)
		return err
	})
}
