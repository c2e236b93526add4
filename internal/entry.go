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

	"github.com/starford/haven/internal/api"
	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/assist"
	"github.com/starford/haven/internal/mcpserver"
	"github.com/starford/haven/internal/metadata"
	"github.com/starford/haven/internal/reminders"
	"github.com/starford/haven/internal/scheduling"
	"github.com/starford/haven/internal/sse"
	"github.com/starford/haven/internal/storage"
	"github.com/starford/haven/internal/watcher"
)

// core is the article store and its engines, shared by every front end.
type core struct {
	store     *storage.FS
	articles  *articleservice.Service
	scheduler *scheduling.Engine
	reminders *reminders.Engine
	close     func()
}

func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(app.logOutput, cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("sqlite_path", cfg.Metadata.SQLitePath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return cfg, logger, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func buildCore(cfg *Config, logger *slog.Logger) (*core, error) {
	store, err := storage.NewFS(cfg.Content.Path, cfg.Content.Extension)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	overlay := metadata.NewOverlay()
	closeFn := func() {}
	if cfg.Metadata.Persistent() {
		db, err := metadata.OpenSQLite(cfg.Metadata.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init metadata: %w", err)
		}
		overlay, err = metadata.NewPersistentOverlay(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("init metadata: %w", err)
		}
		logger.Info("metadata: loaded", slog.Int("records", overlay.Len()))
		closeFn = func() {
			if err := db.Close(); err != nil {
				logger.Warn("metadata: close failed", slog.String("error", err.Error()))
			}
		}
	} else {
		logger.Warn("metadata: no sqlite_path configured, workflow metadata is kept in memory only")
	}

	svc := articleservice.NewService(store, overlay, logger)
	return &core{
		store:     store,
		articles:  svc,
		scheduler: scheduling.NewEngine(svc),
		reminders: reminders.NewEngine(svc),
		close:     closeFn,
	}, nil
}

// Run starts the HTTP server and background workers with the given options.
func Run(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	c, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	// SSE broker.
	broker := sse.NewBroker(cfg.SSE.Throttle)
	defer broker.Close()

	handler := api.NewHandler(api.Deps{
		Articles:  c.articles,
		Scheduler: c.scheduler,
		Reminders: c.reminders,
		Assistant: assist.Placeholder{},
		Notifier:  broker,
		Port:      cfg.App.HTTP.Port,
	})
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	var runner *reminders.Runner
	if cfg.Reminders.Enabled {
		runner, err = reminders.NewRunner(c.reminders, cfg.Reminders.Schedule, broker.PublishReminder, logger)
		if err != nil {
			return err
		}
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)
	// Workers stop once the HTTP server has shut down.
	workerCtx, stopWorkers := context.WithCancel(gCtx)
	defer stopWorkers()

	// File watcher reports external edits as SSE events.
	if cfg.Watcher.Enabled {
		g.Go(func() error {
			if err := watcher.Watch(workerCtx, c.store, logger, broker.PublishArticleEvent); err != nil {
				logger.Warn("watcher: disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if runner != nil {
		g.Go(func() error {
			runner.Run(workerCtx)
			return nil
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stopWorkers()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the article tools over MCP stdio until stdin closes.
// Logs go to stderr unless WithLogOutput says otherwise.
func RunMCP(_ context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	c, err := buildCore(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(c.articles, c.scheduler, c.reminders).ServeStdio()
}
