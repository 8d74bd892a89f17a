// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/novelcipher/internal/api"
	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/index"
	"github.com/starford/novelcipher/internal/mcpserver"
	"github.com/starford/novelcipher/internal/metrics"
	"github.com/starford/novelcipher/internal/parser"
	"github.com/starford/novelcipher/internal/sse"
	"github.com/starford/novelcipher/internal/storage"
)

// Components are the shared building blocks of every command.
type Components struct {
	Config  *Config
	Logger  *slog.Logger
	Store   storage.Provider
	DB      *index.DB
	Cipher  *cipher.Service
	Service *chapter.Service
	Events  *sse.Broker
	Version string
}

// Close stops the event broker and releases the index.
func (c *Components) Close() error {
	c.Events.Close()
	return c.DB.Close()
}

// Setup opens the vault and index, runs the initial sync and wires the
// chapter service.
func Setup(opts ...Option) (*Components, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("auth_enabled", cfg.Auth.AuthEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	km, err := cfg.Cipher.KeyMaterial()
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	c := cipher.New(cipher.StaticKeys(km), cipher.WithLogger(logger))

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	start := time.Now()
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	metrics.ObserveSince(metrics.IndexSyncSeconds, start)

	broker := sse.NewBroker(cfg.SSE.CatalogThrottle, sse.WithKeepAlive(cfg.SSE.KeepAlive))
	svc := chapter.NewService(store, db,
		chapter.WithCipher(c),
		chapter.WithEvents(broker),
		chapter.WithLogger(logger))
	return &Components{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		DB:      db,
		Cipher:  c,
		Service: svc,
		Events:  broker,
		Version: app.version,
	}, nil
}

// NewHandler builds the HTTP handler: health checks, metrics and the API.
func NewHandler(c *Components) http.Handler {
	cfg := c.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.DB.AllChecksums(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", api.NewRouter(c.Service, api.RouterConfig{
		AuthMode:          api.AuthMode(cfg.Auth.Mode),
		Token:             cfg.Auth.Token,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Events:            c.Events,
	}))
	return r
}

// Run starts the HTTP server and the vault watcher and blocks until ctx is
// cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	c, err := Setup(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	cfg := c.Config
	logger := c.Logger

	broker := c.Events

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHandler(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, c.DB, c.Store, logger, func(kind, path string) {
			n, _ := parser.NumberFromPath(path)
			broker.PublishChapterEvent(kind, path, n)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so stdout stays
// reserved for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	opts = append(opts, WithLogOutput(os.Stderr))
	c, err := Setup(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	return mcpserver.New(c.Service, c.Version).ServeStdio()
}
