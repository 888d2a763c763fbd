// Package server is a reference implementation of the knowledge-base REST
// contract backed by SQLite. The editor never depends on it; it exists so
// the client and editor can be exercised end to end.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"blocknotes/internal/service"
)

// Options configures the HTTP surface.
type Options struct {
	// Token is the bearer credential every /api/kb request must carry.
	Token string
	// CORSOrigin, when set, is echoed in Access-Control-Allow-Origin.
	CORSOrigin string
}

// Server routes the REST contract to the page and block services.
type Server struct {
	pages  *service.PageService
	blocks *service.BlockService
	opts   Options
	log    zerolog.Logger
	router *mux.Router
}

// New wires the routes:
//
//	GET    /api/health
//	GET    /api/kb/pages[?parent_id=]
//	POST   /api/kb/pages
//	GET    /api/kb/pages/{id}
//	PATCH  /api/kb/pages/{id}
//	DELETE /api/kb/pages/{id}
//	POST   /api/kb/pages/{id}/blocks
//	PATCH  /api/kb/blocks/{id}
//	DELETE /api/kb/blocks/{id}
func New(pages *service.PageService, blocks *service.BlockService, opts Options, log zerolog.Logger) *Server {
	s := &Server{pages: pages, blocks: blocks, opts: opts, log: log, router: mux.NewRouter()}

	s.router.Use(s.logRequests, s.cors)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	kb := api.PathPrefix("/kb").Subrouter()
	kb.Use(s.requireToken)
	kb.HandleFunc("/pages", s.handleListPages).Methods(http.MethodGet)
	kb.HandleFunc("/pages", s.handleCreatePage).Methods(http.MethodPost)
	kb.HandleFunc("/pages/{id}", s.handleGetPage).Methods(http.MethodGet)
	kb.HandleFunc("/pages/{id}", s.handleUpdatePage).Methods(http.MethodPatch)
	kb.HandleFunc("/pages/{id}", s.handleDeletePage).Methods(http.MethodDelete)
	kb.HandleFunc("/pages/{id}/blocks", s.handleCreateBlock).Methods(http.MethodPost)
	kb.HandleFunc("/blocks/{id}", s.handleUpdateBlock).Methods(http.MethodPatch)
	kb.HandleFunc("/blocks/{id}", s.handleDeleteBlock).Methods(http.MethodDelete)

	// Preflight requests carry no token.
	s.router.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then drains for up to five
// seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("kb server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("kb server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ── middleware ─────────────────────────────────────────────

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token == "" || bearerToken(r) != s.opts.Token {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.CORSOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.opts.CORSOrigin)
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
