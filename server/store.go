package server

import (
	"errors"
	"time"

	"github.com/quicksandd/mirror/crypto"
	"github.com/quicksandd/mirror/report"
)

// ErrRecordNotFound is returned when no analysis record exists for an id.
var ErrRecordNotFound = errors.New("analysis record not found")

// Record is one analysis submission and its lifecycle. The insights bundle
// is only ever stored sealed; the store never sees plaintext.
type Record struct {
	ID           string                 `json:"id"`
	Status       report.Status          `json:"status"`
	PersonName   string                 `json:"person_name,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Keypair      *crypto.WrappedKeypair `json:"keypair,omitempty"`
	Insights     *crypto.Bundle         `json:"insights,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  time.Time              `json:"completed_at,omitempty"`
}

// RecordStore persists analysis records. Implementations must be safe for
// concurrent use; the background analyzer writes while handlers read.
type RecordStore interface {
	// Create stores a new record. The id must not already exist.
	Create(rec *Record) error
	// Get returns the record by id, or ErrRecordNotFound.
	Get(id string) (*Record, error)
	// MarkCompleted sets the sealed insights and flips the record to completed.
	MarkCompleted(id string, insights *crypto.Bundle) error
	// MarkError flips the record to error with a message.
	MarkError(id string, msg string) error
}
