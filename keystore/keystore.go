// Package keystore caches recovered report keys so a repeat visit to a
// report skips the password prompt. Entries expire lazily: Get evicts and
// reports not-found for anything past its time-to-live, and anything that
// fails shape or length validation on read is treated as not usable rather
// than crashing the caller.
//
// Only the retrieval controller writes here, and only with a key that a
// successful unwrap just authenticated.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quicksandd/mirror/internal/util"
)

// DefaultTTL is how long a cached key stays usable, measured from the
// moment the password first unwrapped it.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNotFound is returned by Get and Remove when no usable entry exists for
// the report identifier. Expired and malformed entries report it too.
var ErrNotFound = errors.New("key not found")

// Store is the local cache mapping report identifier to the recovered
// private key. Implementations must be safe for concurrent use; concurrent
// writers for the same identifier may race and last-write-wins is fine,
// since every writer holds the same correctly derived key.
type Store interface {
	Get(reportID string) ([32]byte, error)
	Put(reportID string, priv [32]byte) error
	Remove(reportID string) error
	ListIDs() ([]string, error)
	Clear() error
}

// Options carries settings shared by all backends.
type Options struct {
	TTL time.Duration
	Now func() time.Time
}

// Option customizes a store backend.
type Option func(*Options)

// WithTTL overrides the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.TTL = ttl
	}
}

// WithClock injects the time source, for tests that need to age entries.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// BuildOptions applies opts over the defaults.
func BuildOptions(opts ...Option) Options {
	o := Options{TTL: DefaultTTL, Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Expired reports whether an entry created at createdAt is past its TTL.
func (o Options) Expired(createdAt time.Time) bool {
	return o.Now().Sub(createdAt) > o.TTL
}

// entry is the persisted form. The private key is base64-encoded so the
// record survives any JSON-shaped backing store.
type entry struct {
	ReportID   string    `json:"report_id"`
	PrivateKey string    `json:"private_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// EncodeEntry serializes a cache entry.
func EncodeEntry(reportID string, priv [32]byte, createdAt time.Time) ([]byte, error) {
	e := entry{
		ReportID:   reportID,
		PrivateKey: util.B64Encode(priv[:]),
		CreatedAt:  createdAt,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding keystore entry: %w", err)
	}
	return data, nil
}

// DecodeEntry deserializes and validates a cache entry. Structural problems
// and wrong key lengths mean the entry is not usable; callers evict and
// treat it as absent.
func DecodeEntry(data []byte) (priv [32]byte, createdAt time.Time, err error) {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return priv, createdAt, fmt.Errorf("decoding keystore entry: %w", err)
	}
	raw, err := util.B64Decode(e.PrivateKey)
	if err != nil {
		return priv, createdAt, fmt.Errorf("decoding keystore entry key: %w", err)
	}
	if len(raw) != 32 {
		return priv, createdAt, fmt.Errorf("keystore entry key length %d, want 32", len(raw))
	}
	if e.CreatedAt.IsZero() {
		return priv, createdAt, fmt.Errorf("keystore entry missing creation time")
	}
	copy(priv[:], raw)
	return priv, e.CreatedAt, nil
}
