// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tutordocs/internal/api"
	"github.com/starford/tutordocs/internal/content"
	"github.com/starford/tutordocs/internal/index"
	"github.com/starford/tutordocs/internal/mcpserver"
	"github.com/starford/tutordocs/internal/render"
	"github.com/starford/tutordocs/internal/session"
	"github.com/starford/tutordocs/internal/sse"
	"github.com/starford/tutordocs/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stdout)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker()
	defer broker.Close()

	svc, store, db, err := app.openContent(logger, cfg.SQLite.Path, content.WithNotifier(broker.PublishPageEvent))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Content.Seed {
		n, err := svc.EnsureSeeded(ctx)
		if err != nil {
			return fmt.Errorf("seed content: %w", err)
		}
		if n > 0 {
			logger.Info("seeded default tutorial", slog.Int("pages", n))
		}
	}

	// Run initial sync.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	sessions := session.NewMemory(session.Credentials{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, svc, sessions, broker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index and live clients in step with out-of-band edits.
	g.Go(func() error {
		if err := index.Watch(gCtx, db, store, logger, broker.PublishPageEvent); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher exits once the server stops.
var errShutdown = errors.New("shutdown")

// RunMCP serves the content tools over stdio until stdin closes. It keeps
// its own index (sqlite.mcp_path) so a running HTTP server still sees MCP
// edits as out-of-band changes and publishes them to its clients.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts, os.Stderr)
	if err != nil {
		return err
	}
	logger := app.logger()
	slog.SetDefault(logger)

	svc, store, db, err := app.openContent(logger, app.config.SQLite.MCPPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithCancel(ctx)
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := index.Watch(ctx, db, store, logger, nil); err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	logger.Info("MCP server starting on stdio", slog.String("content_path", app.config.Content.Path))
	return mcpserver.New(svc, app.version).ServeStdio()
}

func newApplication(opts []Option, defaultOutput io.Writer) (*application, error) {
	app := &application{version: "dev", logOutput: defaultOutput}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// openContent wires storage, the SQLite index at indexPath and the renderer
// into a content service. The caller owns the returned DB.
func (a *application) openContent(logger *slog.Logger, indexPath string, opts ...content.Option) (*content.Service, storage.Provider, *index.DB, error) {
	cfg := a.config

	if err := os.MkdirAll(cfg.Content.Path, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create content dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Content.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(indexPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init index: %w", err)
	}

	opts = append([]content.Option{content.WithLogger(logger)}, opts...)
	svc := content.NewService(store, render.New(cfg.Markdown), db, opts...)
	return svc, store, db, nil
}

// newHTTPHandler assembles health checks, the /api surface and the static site.
func newHTTPHandler(cfg *Config, svc *content.Service, sessions session.Registry, broker *sse.Broker, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	r.Mount("/api", api.NewRouter(svc, sessions, broker))

	if dir := cfg.Content.StaticDir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(dir)))
		} else {
			logger.Warn("static dir not served", slog.String("static_dir", dir))
		}
	}

	return r
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
