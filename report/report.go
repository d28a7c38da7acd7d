// Package report defines the client-side view of an analysis report and the
// HTTP client that fetches it. The server's report lifecycle is out of
// scope; the client only observes status transitions across fetches.
package report

import (
	"time"

	"github.com/quicksandd/mirror/crypto"
)

// Status is the server-side processing state observed by the client.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Report is the JSON object returned by the insights endpoint. keypair is
// present for any submitted report; insights only once status is completed,
// error_message only on error.
type Report struct {
	UUID         string                 `json:"uuid,omitempty"`
	Status       Status                 `json:"status"`
	PersonName   string                 `json:"person_name,omitempty"`
	CreatedAt    time.Time              `json:"created_at,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Keypair      *crypto.WrappedKeypair `json:"keypair,omitempty"`
	Insights     *crypto.Bundle         `json:"insights,omitempty"`
}
