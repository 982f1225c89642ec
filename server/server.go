// CLAUDE:SUMMARY HTTP API over the selector registry: chi router, JSON handlers, error mapping, graceful shutdown.
// Package server exposes the registry operations as a JSON HTTP API.
//
//	POST   /v1/synthesize       synthesize one selector (optionally recorded)
//	POST   /v1/candidates       ranked unique selectors for one element
//	POST   /v1/verify           re-evaluate a stored selector
//	GET    /v1/selectors        list stored selectors (?url=&limit=)
//	GET    /v1/selectors/{id}   one stored selector with its verifications
//	DELETE /v1/selectors/{id}   remove a stored selector
//	GET    /health              liveness and stored selector count
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/uniqsel/kit"
	"github.com/hazyhaar/uniqsel/registry"
)

// DefaultMaxBody bounds request bodies.
const DefaultMaxBody = 16 << 20

// Server serves the registry over HTTP.
type Server struct {
	reg     *registry.Registry
	eps     registry.Endpoints
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBody overrides the request body limit.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates a Server for reg.
func New(reg *registry.Registry, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		reg:     reg,
		eps:     reg.Endpoints(),
		logger:  logger,
		maxBody: DefaultMaxBody,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID(s.logger))
	r.Use(SecurityHeaders(DefaultHeaders()))
	r.Use(MaxBody(s.maxBody))

	r.Get("/health", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/synthesize", serveJSON[registry.SynthesizeRequest](s, s.eps.Synthesize))
		r.Post("/candidates", serveJSON[registry.CandidatesRequest](s, s.eps.Candidates))
		r.Post("/verify", serveJSON[registry.VerifyRequest](s, s.eps.Verify))

		r.Get("/selectors", func(w http.ResponseWriter, r *http.Request) {
			req := &registry.ListRequest{
				URL:   r.URL.Query().Get("url"),
				Limit: queryInt(r, "limit", 0),
			}
			s.call(w, r, s.eps.List, req, http.StatusOK)
		})
		r.Get("/selectors/{id}", func(w http.ResponseWriter, r *http.Request) {
			s.call(w, r, s.eps.Get, &registry.GetRequest{ID: chi.URLParam(r, "id")}, http.StatusOK)
		})
		r.Delete("/selectors/{id}", s.deleteSelector)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	n, err := s.reg.Store().CountRecords(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "selectors": n})
}

func (s *Server) deleteSelector(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := s.reg.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", registry.ErrNotFound, id))
		return
	}
	if err := s.reg.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// serveJSON decodes a JSON body into a fresh *T and calls ep.
func serveJSON[T any](s *Server, ep kit.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := new(T)
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, err)
				return
			}
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
			return
		}
		s.call(w, r, ep, req, http.StatusOK)
	}
}

func (s *Server) call(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any, code int) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, code, resp)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, registry.ErrFetch):
		writeError(w, http.StatusBadGateway, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err)
	default:
		s.logger.Error("server: internal error", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}
