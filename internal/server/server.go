// Package server exposes the link directory over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/linkshelf/internal/backup"
	"github.com/mesh-intelligence/linkshelf/internal/gate"
	"github.com/mesh-intelligence/linkshelf/internal/metrics"
	"github.com/mesh-intelligence/linkshelf/internal/repo"
)

// Config holds the collaborators of a Server.
type Config struct {
	Repo    *repo.Repository
	Backups *backup.Manager
	Gate    *gate.Gate

	// EnforceAuth requires X-Admin-Password on every mutating route
	// except login.
	EnforceAuth bool

	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served on /metrics; nil disables the route
}

// Server routes API requests to the repository and backup manager.
type Server struct {
	repo    *repo.Repository
	backups *backup.Manager
	gate    *gate.Gate
	enforce bool
	logger  zerolog.Logger
	metrics *metrics.Metrics
	router  *mux.Router
}

// New builds the router.
func New(cfg Config) *Server {
	s := &Server{
		repo:    cfg.Repo,
		backups: cfg.Backups,
		gate:    cfg.Gate,
		enforce: cfg.EnforceAuth,
		logger:  cfg.Logger.With().Str("component", "http").Logger(),
		metrics: cfg.Metrics,
		router:  mux.NewRouter(),
	}
	s.routes(cfg.Gatherer)
	return s
}

func (s *Server) routes(g prometheus.Gatherer) {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(s.logRequests, s.measure)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if g != nil {
		r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	r.HandleFunc("/api/categories", s.handleListCategories).Methods(http.MethodGet)
	r.Handle("/api/categories", s.admin(s.handleCreateCategory)).Methods(http.MethodPost)
	r.Handle("/api/categories/reorder", s.admin(s.handleReorderCategories)).Methods(http.MethodPost)
	r.Handle("/api/categories/{id}", s.admin(s.handleUpdateCategory)).Methods(http.MethodPut)
	r.Handle("/api/categories/{id}", s.admin(s.handleDeleteCategory)).Methods(http.MethodDelete)

	r.HandleFunc("/api/links", s.handleListLinks).Methods(http.MethodGet)
	r.Handle("/api/links", s.admin(s.handleCreateLink)).Methods(http.MethodPost)
	r.Handle("/api/links/{id}", s.admin(s.handleUpdateLink)).Methods(http.MethodPut)
	r.Handle("/api/links/{id}", s.admin(s.handleDeleteLink)).Methods(http.MethodDelete)

	r.Handle("/api/backup-kv", s.admin(s.handleBackup)).Methods(http.MethodPost)
	r.Handle("/api/cron-backup", s.admin(s.handleCronBackup)).Methods(http.MethodPost)
	r.HandleFunc("/api/backup-list", s.handleBackupList).Methods(http.MethodGet)
	r.Handle("/api/restore-kv", s.admin(s.handleRestoreKV)).Methods(http.MethodPost)
	r.Handle("/api/restore", s.admin(s.handleRestore)).Methods(http.MethodPost)
}

// admin wraps h with the password gate when enforcement is on.
func (s *Server) admin(h http.HandlerFunc) http.Handler {
	if !s.enforce || s.gate == nil {
		return h
	}
	return s.gate.Middleware(h)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}
