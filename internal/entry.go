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
	"golang.org/x/sync/errgroup"

	"github.com/starford/secondbrain/internal/api"
	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/mcpserver"
	"github.com/starford/secondbrain/internal/pipeline"
	"github.com/starford/secondbrain/internal/scheduler"
	"github.com/starford/secondbrain/internal/vault"
)

// setup applies the options, installs the JSON logger and wires the services.
func setup(opts []Option) (*application, *components, error) {
	app := newApplication(opts)
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("vault_enabled", cfg.Vault.Enabled),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("attachments_path", cfg.Attachments.Path),
		slog.String("llm_model", cfg.LLM.Model),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := newComponents(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, c, nil
}

// Run starts the HTTP server, the scheduler and the vault watcher.
func Run(ctx context.Context, opts ...Option) error {
	_, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.Close()
	cfg, logger := c.cfg, c.logger

	if n, err := c.db.RecoverStaleCaptures(ctx); err != nil {
		logger.Warn("recover stale captures failed", slog.String("error", err.Error()))
	} else if n > 0 {
		logger.Info("Recovered stale captures", slog.Int64("count", n))
	}

	apiRouter := api.NewRouter(api.Deps{
		Notes:        c.notes,
		Captures:     c.captures,
		Calendar:     c.calendar,
		Activity:     c.db,
		Ask:          c.ask,
		Attachments:  c.attachments,
		Process:      c.process,
		Extract:      c.extract,
		Stream:       c.broker,
		CalendarName: cfg.Calendar.Name,
		Location:     cfg.Calendar.Location(),
	}, api.AuthConfig{
		Enabled:    cfg.Auth.AuthEnabled(),
		Token:      cfg.Auth.Token,
		AdminToken: cfg.Auth.AdminToken,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(logger,
			scheduler.Job{Name: "process captures", Spec: cfg.Scheduler.ProcessCaptures, Run: func(ctx context.Context) {
				c.process(ctx)
			}},
			scheduler.Job{Name: "extract events", Spec: cfg.Scheduler.ExtractEvents, Run: func(ctx context.Context) {
				if _, err := c.extract(ctx); err != nil {
					logger.Warn("event extraction failed", slog.String("error", err.Error()))
				}
			}},
		)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		g.Go(func() error {
			return sched.Run(gCtx)
		})
	}

	if c.syncer != nil && cfg.Vault.Watch {
		g.Go(func() error {
			if err := vault.Watch(gCtx, cfg.Vault.Path, c.syncer, vault.DefaultDebounce, logger); err != nil {
				logger.Error("vault watcher stopped", slog.String("error", err.Error()))
			}
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

		// Stops the scheduler and the watcher.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdin/stdout. Logs go to the configured
// output, which must not be stdout.
func RunMCP(_ context.Context, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(app.version, mcpserver.Deps{
		Notes:       c.notes,
		Captures:    c.captures,
		Ask:         c.ask,
		Calendar:    c.calendar,
		Attachments: c.attachments,
	})
	return srv.ServeStdio()
}

// Process runs capture pipeline passes: one, or until nothing is pending when all is set.
func Process(ctx context.Context, all bool, opts ...Option) ([]pipeline.Result, error) {
	_, c, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var results []pipeline.Result
	for {
		res := c.process(ctx)
		results = append(results, res)
		if !all || !res.Processed || ctx.Err() != nil {
			return results, nil
		}
	}
}

// Extract runs one event extraction pass.
func Extract(ctx context.Context, opts ...Option) (events.Result, error) {
	_, c, err := setup(opts)
	if err != nil {
		return events.Result{}, err
	}
	defer c.Close()
	return c.extract(ctx)
}

// VaultPush pushes the Markdown mirror into the store.
func VaultPush(ctx context.Context, force bool, opts ...Option) (*vault.Report, error) {
	_, c, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if c.syncer == nil {
		return nil, errVaultDisabled
	}
	return c.syncer.Push(ctx, force)
}

// VaultPull writes every stored note into the Markdown mirror.
func VaultPull(ctx context.Context, force bool, opts ...Option) (*vault.Report, error) {
	_, c, err := setup(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if c.syncer == nil {
		return nil, errVaultDisabled
	}
	return c.syncer.Pull(ctx, force)
}

var errVaultDisabled = errors.New("vault is disabled (set vault.enabled)")
