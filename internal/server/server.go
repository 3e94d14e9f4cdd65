// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and routes,
// and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable (server_test.go
// builds a Server without listening on a port) and keeps main.go minimal.
//
// DEPENDENCY INJECTION FLOW:
// main.go loads a config.Config and passes it here.
// New() then builds, in order:
//
//	sqlite.DB, TokenService, GitHubProvider, StateStore, openai.Generator
//	  → services (user, project, blog, auth, ai)
//	  → handlers
//	  → routes
//
// This is the "composition root" pattern: every dependency is wired in one
// place, rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/config"
	"github.com/sakif/devsnap/internal/generator/openai"
	"github.com/sakif/devsnap/internal/handler"
	"github.com/sakif/devsnap/internal/middleware"
	sqliteRepo "github.com/sakif/devsnap/internal/repository/sqlite"
	"github.com/sakif/devsnap/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, when REDIS_URL is set, the
// Redis client behind the OAuth state store. Close releases both; Start calls
// it during graceful shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	states   auth.StateStore
	registry *prometheus.Registry
}

// New creates a new Server from cfg.
//
// Optional integrations never stop the server from starting:
//   - no SECRET_KEY:    logins fail with a configuration error
//   - no GitHub app:    /auth/github/login fails with a configuration error
//   - no OpenAI key:    the AI endpoints answer with a not-configured message
//   - no REDIS_URL:     OAuth state lives in process memory
//
// An unreachable Redis or an unopenable database, on the other hand, is fatal.
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}

	// === OAUTH STATE STORE ===
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		redisStore, err := auth.NewRedisStateStore(ctx, cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting state store: %w", err)
		}
		s.states = redisStore
	} else {
		s.states = auth.NewMemoryStateStore()
	}

	if err := s.setupRoutes(); err != nil {
		s.Close() // Clean up DB and Redis if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the root handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                                   → welcome document
// GET    /health                             → liveness + database ping
// GET    /metrics                            → Prometheus metrics
// GET    /auth/github/login                  → redirect to GitHub
// GET    /auth/github/callback               → finish login, redirect to frontend
// GET    /auth/me                            → current user's profile      [auth]
// POST   /auth/logout                        → acknowledge logout
// (all /auth routes are also served under /api/auth)
// GET    /api/users, /api/users/{id}         → read users
// POST   /api/users                          → create a user
// PUT    /api/users/{id}                     → update yourself             [auth]
// DELETE /api/users/{id}                     → delete yourself             [auth]
// GET    /api/projects, /api/projects/{id}   → read projects (?user_id=)
// POST   /api/projects                       → create a project            [auth]
// PUT    /api/projects/{id}                  → update your project         [auth]
// DELETE /api/projects/{id}                  → delete your project         [auth]
// (/api/blogs mirrors /api/projects)
// POST   /api/ai/generate-bio                → AI-written bio
// POST   /api/ai/generate-project-summary    → AI-written project summary
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Metrics: counts requests per route pattern
// 5. Recoverer: catches panics and returns 500 instead of crashing
// 6. StripSlashes: "/api/projects/" routes like "/api/projects"
// 7. CORS: lets the frontend call us from the browser
//
// Recoverer sits inside Logger and Metrics so a panic is still logged and
// counted as a 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.NewMetrics(s.registry).Handler)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(middleware.CORS(cfg.FrontendURL))

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// === Core dependencies ===
	tokens, err := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.TTL())
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	provider := auth.NewGitHubProvider(cfg.GitHub)
	gen := openai.New(cfg.OpenAI, nil, s.logger)

	s.logger.Info("integrations",
		slog.Bool("githubOAuth", provider.Configured()),
		slog.Bool("openAI", gen.Configured()),
		slog.Bool("redisState", cfg.RedisURL != ""),
	)

	// === Services ===
	// DEPENDENCY CHAIN:
	//   s.db (sqlite.DB) implements every repository interface
	//   services receive the interfaces
	//   handlers receive the services
	//
	// The handler never touches the database directly.
	// The service never touches HTTP.
	userService := service.NewUserService(s.db, s.logger)
	projectService := service.NewProjectService(s.db, s.logger)
	blogService := service.NewBlogService(s.db, s.logger)
	authService := service.NewAuthService(s.db, s.db, provider, s.states, tokens, cfg.FrontendURL, cfg.OAuthStateTTL, s.logger)
	aiService := service.NewAIService(gen, s.logger)

	// === Handlers ===
	homeHandler := handler.NewHomeHandler(s.db, s.logger)
	authHandler := handler.NewAuthHandler(authService, cfg.OAuthStateTTL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.logger)
	blogHandler := handler.NewBlogHandler(blogService, s.logger)
	aiHandler := handler.NewAIHandler(aiService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.logger)

	// === Service Routes ===
	s.router.Get("/", homeHandler.HandleRoot)
	s.router.Get("/health", homeHandler.HandleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// === Auth Routes ===
	// The GitHub app's callback URL points at /auth/github/callback, while the
	// frontend calls /api/auth/me. Both prefixes serve the same routes.
	authRoutes := func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.With(requireAuth).Get("/me", authHandler.HandleMe)
		r.Post("/logout", authHandler.HandleLogout)
	}
	s.router.Route("/auth", authRoutes)

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", authRoutes)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.HandleList)
			r.Post("/", userHandler.HandleCreate)
			r.Get("/{id}", userHandler.HandleGetByID)
			r.With(requireAuth).Put("/{id}", userHandler.HandleUpdate)
			r.With(requireAuth).Delete("/{id}", userHandler.HandleDelete)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", projectHandler.HandleList)
			r.Get("/{id}", projectHandler.HandleGetByID)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", projectHandler.HandleCreate)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
			})
		})

		r.Route("/blogs", func(r chi.Router) {
			r.Get("/", blogHandler.HandleList)
			r.Get("/{id}", blogHandler.HandleGetByID)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", blogHandler.HandleCreate)
				r.Put("/{id}", blogHandler.HandleUpdate)
				r.Delete("/{id}", blogHandler.HandleDelete)
			})
		})

		r.Route("/ai", func(r chi.Router) {
			r.Post("/generate-bio", aiHandler.HandleGenerateBio)
			r.Post("/generate-project-summary", aiHandler.HandleGenerateProjectSummary)
		})
	})

	return nil
}

// Close releases the database and the state store.
func (s *Server) Close() error {
	var errs []error
	if c, ok := s.states.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database and Redis connections
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The deferred Close ensures this happens even if something panics.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	// Create the HTTP server with sensible timeouts. WriteTimeout leaves room
	// for a slow OpenAI completion.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("frontend", s.config.FrontendURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
