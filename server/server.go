// Package server is the companion development server for the Mirror
// protocol. It accepts a chat submission together with a wrapped keypair,
// runs an analyzer in the background, seals the resulting insights to the
// submitted public key, and serves the report JSON that the client polls.
// The plaintext insights exist only inside the analysis goroutine; the
// record store holds ciphertext.
package server

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	records  RecordStore
	analyzer Analyzer
	logger   *slog.Logger
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAnalyzer replaces the built-in summary analyzer.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Server) {
		s.analyzer = a
	}
}

// New creates a server over the given record store.
func New(records RecordStore, opts ...Option) *Server {
	s := &Server{
		records:  records,
		analyzer: SummaryAnalyzer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return s
}

// Router returns a chi.Router with all routes mounted. Paths keep their
// trailing slashes; the client fetches them that way.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/mirror/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/mirror/api/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/mirror/api/openapi.yaml",
		Path:    "mirror/api/docs",
	}, nil))

	r.Handle("/mirror/api/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/mirror/api/openapi.yaml",
		Path:    "mirror/api/redoc",
	}, nil))

	r.Post("/mirror/api/process-data/", s.ProcessData)
	r.Get("/mirror/api/insights/{reportID}/", s.Insights)

	return r
}
