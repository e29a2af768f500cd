package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DatasetProvider returns the most recent prepared dataset, if any.
type DatasetProvider interface {
	LastDataset() (*domain.Dataset, bool)
}

// Server exposes health, readiness, metrics, the last run summary and the
// rendered artifacts.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, /summary
// and, when artifactDir is non-empty, /artifacts/ routes.
func NewServer(addr string, ready ReadinessChecker, datasets DatasetProvider, artifactDir string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.HandleFunc("GET /summary", handleSummary(datasets))
	mux.Handle("GET /metrics", promhttp.Handler())
	if artifactDir != "" {
		mux.Handle("GET /artifacts/", http.StripPrefix("/artifacts/", http.FileServer(http.Dir(artifactDir))))
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type columnMissing struct {
	Column  string `json:"column"`
	Missing int    `json:"missing"`
}

type summary struct {
	RunID             string             `json:"run_id"`
	Source            string             `json:"source"`
	PreparedAt        time.Time          `json:"prepared_at"`
	Rows              int                `json:"rows"`
	StartTimeFailures int                `json:"start_time_failures"`
	EndTimeFailures   int                `json:"end_time_failures"`
	Missingness       []columnMissing    `json:"missingness"`
	Medians           map[string]float64 `json:"medians"`
	Imputed           map[string]int     `json:"imputed"`
}

func handleSummary(datasets DatasetProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ds, ok := datasets.LastDataset()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no completed run"})
			return
		}

		out := summary{
			RunID:             ds.RunID,
			Source:            ds.Source,
			PreparedAt:        ds.PreparedAt,
			Rows:              ds.Stats.Rows,
			StartTimeFailures: ds.Stats.StartTimeFailures,
			EndTimeFailures:   ds.Stats.EndTimeFailures,
			Missingness:       make([]columnMissing, len(ds.Missingness)),
			Medians:           ds.Medians,
			Imputed:           ds.Stats.Imputed,
		}
		for i, m := range ds.Missingness {
			out.Missingness[i] = columnMissing{Column: m.Column, Missing: m.Missing}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
