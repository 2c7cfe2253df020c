// Package httpapi serves the read-only diagnostic HTTP surface:
// health, Prometheus metrics, telemetry snapshots and state snapshots.
//
// The coordination core stays single-threaded; handlers only read
// point-in-time snapshots.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dshills/corekit/internal/core"
)

// Server is the diagnostic HTTP server.
type Server struct {
	rt  *core.Runtime
	log zerolog.Logger
	srv *http.Server
}

// New creates a server for rt listening on addr.
func New(rt *core.Runtime, log zerolog.Logger, addr string) *Server {
	s := &Server{rt: rt, log: log}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(s.rt))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/telemetry", s.handleTelemetry)
	r.Get("/state", s.handleState)
	r.Get("/state/{key}", s.handleStateKey)

	return r
}

// Start runs the server until Shutdown. It returns when the listener
// closes; http.ErrServerClosed is swallowed as a normal shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("diagnostic server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// requestLogger logs completed requests at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"phase":  s.rt.Phase().String(),
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"records": s.rt.Telemetry(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.Store().Snapshot())
}

func (s *Server) handleStateKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	v, ok := s.rt.Get(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "key not set"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": v})
}

// writeJSON encodes v; values a module put in state may not be
// JSON-encodable, in which case a plain error object is returned
// instead of a half-written body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"unencodable value"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
