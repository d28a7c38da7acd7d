package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quicksandd/mirror/crypto"
	"github.com/quicksandd/mirror/report"
)

// maxSubmissionSize bounds the chat export accepted in one submission.
const maxSubmissionSize = 32 << 20

// ProcessDataRequest is the submission payload: the export to analyze plus
// the wrapped keypair whose public half the insights are sealed to.
type ProcessDataRequest struct {
	PersonName string                 `json:"person_name"`
	Chat       json.RawMessage        `json:"chat"`
	Keypair    *crypto.WrappedKeypair `json:"keypair"`
}

// ProcessDataResponse acknowledges a submission. Processing continues in the
// background; the caller polls the returned URL.
type ProcessDataResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	URL     string `json:"url"`
}

// ErrorResponse is the body of any non-success answer.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Message: msg})
}

// ProcessData handles POST /mirror/api/process-data/. It validates the
// submission, stores a processing record, and kicks off analysis in the
// background. The response carries the record id immediately.
func (s *Server) ProcessData(w http.ResponseWriter, r *http.Request) {
	var req ProcessDataRequest
	body := http.MaxBytesReader(w, r.Body, maxSubmissionSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON data")
		return
	}
	if req.Keypair == nil {
		writeError(w, http.StatusBadRequest, "keypair is required")
		return
	}
	// Reject unsealable submissions up front rather than at completion time.
	recipient, err := req.Keypair.PublicKey()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid keypair: %v", err))
		return
	}

	rec := &Record{
		ID:         uuid.NewString(),
		Status:     report.StatusProcessing,
		PersonName: req.PersonName,
		Keypair:    req.Keypair,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.records.Create(rec); err != nil {
		s.logger.Error("creating analysis record", "error", err)
		writeError(w, http.StatusInternalServerError, "could not accept submission")
		return
	}

	s.logger.Info("submission accepted", "id", rec.ID, "person_name", rec.PersonName)
	go s.process(rec.ID, req.PersonName, req.Chat, recipient)

	writeJSON(w, http.StatusOK, ProcessDataResponse{
		Status:  "success",
		Message: "File accepted and processing started",
		UUID:    rec.ID,
		URL:     fmt.Sprintf("/mirror/insights/%s/", rec.ID),
	})
}

// process runs the analyzer and seals its output. Runs on its own goroutine;
// the submission request has already been answered.
func (s *Server) process(id, personName string, chat json.RawMessage, recipient [32]byte) {
	log := s.logger.With("id", id)
	log.Info("analysis started")

	result, err := s.analyzer.Analyze(context.Background(), personName, chat)
	if err != nil {
		log.Error("analysis failed", "error", err)
		s.markError(id, err.Error())
		return
	}

	bundle, err := crypto.SealBundle(result, recipient, nil)
	if err != nil {
		log.Error("sealing insights", "error", err)
		s.markError(id, "could not encrypt insights")
		return
	}

	if err := s.records.MarkCompleted(id, bundle); err != nil {
		log.Error("marking record completed", "error", err)
		return
	}
	log.Info("analysis completed")
}

func (s *Server) markError(id, msg string) {
	if err := s.records.MarkError(id, msg); err != nil {
		s.logger.Error("marking record failed", "id", id, "error", err)
	}
}

// Insights handles GET /mirror/api/insights/{reportID}/. The insights bundle
// is only present once completed, and the error message only on error.
func (s *Server) Insights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, "no analysis with that id")
		return
	}

	rec, err := s.records.Get(id)
	if errors.Is(err, ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "no analysis with that id")
		return
	}
	if err != nil {
		s.logger.Error("loading analysis record", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load analysis")
		return
	}

	rep := report.Report{
		UUID:       rec.ID,
		Status:     rec.Status,
		PersonName: rec.PersonName,
		CreatedAt:  rec.CreatedAt,
		Keypair:    rec.Keypair,
	}
	if rec.Status == report.StatusCompleted {
		rep.Insights = rec.Insights
	}
	if rec.Status == report.StatusError {
		rep.ErrorMessage = rec.ErrorMessage
	}
	s.logger.Info("insights requested", "id", id, "status", string(rec.Status),
		"remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, rep)
}
