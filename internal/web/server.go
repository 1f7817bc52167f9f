// Package web provides the HTTP API for contacts, groups and imports.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/audience/internal/config"
	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/metrics"
	"github.com/JonMunkholm/audience/internal/reports"
	appmw "github.com/JonMunkholm/audience/internal/web/middleware"
)

// Server is the HTTP server for the contacts API.
type Server struct {
	service  *core.Service
	reports  reports.Store
	snapshot *Snapshot
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server

	limiters []*rateLimiter
}

// NewServer creates a new Server. The snapshot's background refresh is
// started separately with Snapshot().Run.
func NewServer(service *core.Service, rs reports.Store, cfg *config.Config) *Server {
	s := &Server{
		service:  service,
		reports:  rs,
		snapshot: NewSnapshot(service, cfg.Refresh.Interval),
		cfg:      cfg,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.Client(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "application/json", "text/csv"))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := s.newLimiter(s.cfg.Rate.RequestsPerMinute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(appmw.APIKeyAuth(&s.cfg.Security))

		// Groups
		r.Get("/groups", s.handleListGroups)
		r.Post("/groups", s.handleAddGroup)

		// Contacts
		r.Get("/contacts", s.handleListContacts)
		r.Get("/contacts/export", s.handleExportContacts)
		r.Get("/contacts/by-group/{group}", s.handleContactsByGroup)
		r.Post("/contacts", s.handleAddContact)
		r.Put("/contacts/{id}", s.handleUpdateContact)
		r.Delete("/contacts/{id}", s.handleDeleteContact)

		// Bulk actions
		r.Post("/contacts/bulk/delete", s.handleBulkDelete)
		r.Post("/contacts/bulk/group", s.handleBulkReassign)

		// Imports
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newLimiter(s.cfg.Rate.ImportLimit).middleware)
			}
			r.Post("/import", s.handleImport)
			r.Post("/import/preview", s.handlePreviewImport)
		})
		r.Get("/import/sample", s.handleSampleCSV)
		r.Get("/imports", s.handleImportHistory)
		r.Get("/import/{id}", s.handleImportReport)
		r.Get("/import/{id}/skipped", s.handleSkippedCSV)
	})
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, rateWindow)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Snapshot returns the contact snapshot served by the list endpoints.
func (s *Server) Snapshot() *Snapshot {
	return s.snapshot
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.ImportStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"activeImports":  status.Active,
		"importCapacity": status.Capacity,
	})
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// The API serves JSON and CSV only.
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
