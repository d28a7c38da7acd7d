package server

import (
	"context"
	"encoding/json"
	"fmt"
)

// Analyzer turns a raw chat export into the insights document that gets
// sealed to the submitter. The production analysis pipeline lives elsewhere;
// this server only needs something that produces a JSON payload.
type Analyzer interface {
	Analyze(ctx context.Context, personName string, chat json.RawMessage) ([]byte, error)
}

// SummaryAnalyzer is the built-in analyzer: it counts the messages in the
// export and emits a small summary document. Useful for development and for
// exercising the encryption path end to end.
type SummaryAnalyzer struct{}

var _ Analyzer = SummaryAnalyzer{}

func (SummaryAnalyzer) Analyze(ctx context.Context, personName string, chat json.RawMessage) ([]byte, error) {
	var messages []json.RawMessage
	if len(chat) > 0 {
		if err := json.Unmarshal(chat, &messages); err != nil {
			return nil, fmt.Errorf("chat export is not a JSON array: %w", err)
		}
	}
	doc := struct {
		PersonName   string `json:"person_name"`
		MessageCount int    `json:"message_count"`
		Summary      string `json:"summary"`
	}{
		PersonName:   personName,
		MessageCount: len(messages),
		Summary:      fmt.Sprintf("Analyzed %d messages.", len(messages)),
	}
	return json.Marshal(doc)
}
