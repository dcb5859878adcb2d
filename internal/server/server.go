package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/config"
	"github.com/jackzampolin/pdfextract/internal/home"
	"github.com/jackzampolin/pdfextract/internal/pipeline"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/providers"
	"github.com/jackzampolin/pdfextract/internal/render"
	"github.com/jackzampolin/pdfextract/internal/server/endpoints"
	"github.com/jackzampolin/pdfextract/internal/session"
	"github.com/jackzampolin/pdfextract/internal/svcctx"
	"github.com/jackzampolin/pdfextract/web"
)

// Server is the pdfextract HTTP server. It serves the upload UI and the
// JSON API over a single in-process pipeline.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	prompts    *prompts.Registry
	sessions   *session.Store
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: server.host from config)
	Host string
	// Port is the port to listen on (default: server.port from config)
	Port string
	// ConfigManager provides configuration with hot-reload support.
	// When nil, built-in defaults are used.
	ConfigManager *config.Manager
	// Home is the pdfextract home directory, used to resolve the prompt dir.
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger

	// Providers replaces the registry built from config.
	Providers *providers.Registry
	// Runner replaces the configured pipeline.
	Runner pipeline.Runner
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
	}
	c := s.config()

	if cfg.Host == "" {
		cfg.Host = c.Server.Host
	}
	if cfg.Port == "" {
		cfg.Port = c.Server.Port
	}

	// Provider registry, rebuilt when the config file changes
	s.registry = cfg.Providers
	if s.registry == nil {
		registry, err := providers.NewRegistryFromConfig(c.ToProviderRegistryConfig(), cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider registry: %w", err)
		}
		s.registry = registry

		if cfg.ConfigManager != nil {
			cfg.ConfigManager.OnChange(func(c *config.Config) {
				if err := registry.Reload(c.ToProviderRegistryConfig()); err != nil {
					cfg.Logger.Error("provider registry reload failed", "error", err)
					return
				}
				cfg.Logger.Info("provider registry reloaded from config")
			})
		}
	}

	promptDir := c.PromptDir
	if cfg.Home != nil {
		promptDir = cfg.Home.ResolvePromptDir(c.PromptDir)
	}
	s.prompts = prompts.NewRegistry(promptDir, cfg.Logger)
	s.sessions = session.NewStore(c.SessionTTL())

	runner := cfg.Runner
	if runner == nil {
		runner = &pipeline.ConfiguredRunner{
			Config:    s.config,
			Prompts:   s.prompts,
			Providers: s.registry,
			Logger:    cfg.Logger,
		}
	}

	s.services = &svcctx.Services{
		Registry:      s.registry,
		Prompts:       s.prompts,
		Pipeline:      runner,
		Sessions:      s.sessions,
		ConfigManager: cfg.ConfigManager,
		Logger:        cfg.Logger,
		Home:          cfg.Home,
	}

	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		Templates:      templates,
		ThumbnailWidth: render.DefaultThumbnailWidth,
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withServices(s.limitUploads(mux)),
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      c.WriteTimeout(),
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Start serves HTTP until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	c := s.config()
	if err := render.NewPdftoppmRasterizer(c.Render.PdftoppmPath).Available(); err != nil {
		s.logger.Warn("pdftoppm not available, uploads will fail at the render stage", "error", err)
	}
	if names, err := s.prompts.List(); err != nil {
		s.logger.Warn("prompt directory unreadable", "dir", s.prompts.Dir(), "error", err)
	} else {
		s.logger.Info("prompts loaded", "dir", s.prompts.Dir(), "count", len(names))
	}
	ocrDefault, llmDefault := s.registry.Defaults()
	s.logger.Info("providers ready",
		"ocr", s.registry.ListOCR(), "llm", s.registry.ListLLM(),
		"default_ocr", ocrDefault, "default_llm", llmDefault)

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests and releases provider clients.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.registry.Close()

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Sessions returns the per-browser result store.
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// config returns the current configuration, or defaults without a manager.
func (s *Server) config() *config.Config {
	if s.configMgr != nil {
		if c := s.configMgr.Get(); c != nil {
			return c
		}
	}
	return config.DefaultConfig()
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitUploads caps request bodies at server.max_upload_mb.
func (s *Server) limitUploads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, s.config().MaxUploadBytes())
		}
		next.ServeHTTP(w, r)
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the pipeline isn't wired.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.services.Pipeline == nil || s.services.Prompts == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
