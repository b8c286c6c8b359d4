// Package web provides the HTTP server and handlers for the merge UI.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/salesmerge/internal/config"
	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the merge application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	now     func() time.Time

	stopLimiters context.CancelFunc
}

// NewServer creates a Server. cfg must have passed Validate.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		now:     time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopLimiters = cancel

	general := func(next http.Handler) http.Handler { return next }
	heavy := general
	if s.cfg.Rate.Enabled {
		generalLimiter := middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		heavyLimiter := middleware.NewRateLimiter(s.cfg.Rate.UploadLimit, time.Minute)
		go generalLimiter.Run(ctx)
		go heavyLimiter.Run(ctx)
		general = generalLimiter.Middleware
		heavy = heavyLimiter.Middleware
	}

	// Dashboard script and styles
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(general)

		r.Get("/", s.handleDashboard)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))

			r.Get("/files", s.handleListFiles)
			r.With(heavy).Post("/files", s.handleUpload)
			r.Delete("/files/{id}", s.handleRemoveFile)
			r.Post("/reset", s.handleReset)

			r.With(heavy).Post("/merge", s.handleMerge)
			r.Get("/history", s.handleHistory)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and then for
// running parses to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiters()
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.service.Limiter().WaitForDrain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' blob: data:")
		}

		next.ServeHTTP(w, r)
	})
}
