package server

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/quicksandd/mirror/crypto"
	"github.com/quicksandd/mirror/report"
)

var recordsBucket = []byte("analyses")

// BoltRecordStore is a RecordStore backed by a BBolt database. Records are
// stored as JSON under their id.
type BoltRecordStore struct {
	db *bbolt.DB
}

var _ RecordStore = (*BoltRecordStore)(nil)

// NewBoltRecordStore returns a record store backed by the given database.
func NewBoltRecordStore(db *bbolt.DB) (*BoltRecordStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating records bucket: %w", err)
	}
	return &BoltRecordStore{db: db}, nil
}

// NewBoltRecordStoreFromFile opens a BBolt database at the given path and
// returns a record store over it.
func NewBoltRecordStoreFromFile(path string, options *bbolt.Options) (*BoltRecordStore, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewBoltRecordStore(db)
}

// Close closes the underlying database.
func (s *BoltRecordStore) Close() error {
	return s.db.Close()
}

func (s *BoltRecordStore) Create(rec *Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if b.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("record %s already exists", rec.ID)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		return b.Put([]byte(rec.ID), data)
	})
}

func (s *BoltRecordStore) Get(id string) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(recordsBucket).Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BoltRecordStore) MarkCompleted(id string, insights *crypto.Bundle) error {
	return s.update(id, func(rec *Record) {
		rec.Status = report.StatusCompleted
		rec.Insights = insights
		rec.CompletedAt = time.Now().UTC()
	})
}

func (s *BoltRecordStore) MarkError(id string, msg string) error {
	return s.update(id, func(rec *Record) {
		rec.Status = report.StatusError
		rec.ErrorMessage = msg
		rec.CompletedAt = time.Now().UTC()
	})
}

func (s *BoltRecordStore) update(id string, apply func(*Record)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
		apply(&rec)
		out, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		return b.Put([]byte(id), out)
	})
}
