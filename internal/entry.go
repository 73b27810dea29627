// Package internal provides the application commands and their runtime wiring.
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

	"github.com/starford/schemafill/internal/api"
	"github.com/starford/schemafill/internal/apperr"
	"github.com/starford/schemafill/internal/backfill"
	"github.com/starford/schemafill/internal/generator"
	"github.com/starford/schemafill/internal/journal"
	"github.com/starford/schemafill/internal/mcpserver"
	"github.com/starford/schemafill/internal/parser"
	"github.com/starford/schemafill/internal/report"
	"github.com/starford/schemafill/internal/schemaservice"
	"github.com/starford/schemafill/internal/sse"
	"github.com/starford/schemafill/internal/storage"
	"github.com/starford/schemafill/internal/store/mongostore"
	"github.com/starford/schemafill/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version:      "dev",
		out:          os.Stdout,
		logOut:       os.Stderr,
		historyLimit: 20,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := app.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app.logger = newLogger(app.logOut, app.config.App)
	slog.SetDefault(app.logger)
	return app, nil
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// schemaService opens the configured schema sources and parses them.
func (app *application) schemaService(ctx context.Context) (*schemaservice.Service, error) {
	cfg := app.config.Schema
	src, err := storage.NewFS(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("schema path %s: %w", cfg.Path, apperr.ErrNoSchema)
	}
	svc := schemaservice.NewService(src, parser.Options{StrictOptional: cfg.StrictOptional}, app.logger)
	if _, err := svc.Load(ctx); err != nil {
		return svc, fmt.Errorf("load schema from %s: %w", cfg.Path, err)
	}
	return svc, nil
}

func (app *application) outputProvider() (storage.Provider, error) {
	dir := app.config.Schema.Output
	if dir == "" {
		return nil, errors.New("schema output directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out, err := storage.NewFS(dir)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	return out, nil
}

func (app *application) recordStore() (backfill.Store, error) {
	if app.store != nil {
		return app.store, nil
	}
	if err := app.config.Mongo.Require(); err != nil {
		return nil, err
	}
	return mongostore.New(mongostore.Config{
		URI:            app.config.Mongo.URI,
		Database:       app.config.Mongo.Database,
		ConnectTimeout: app.config.Mongo.ConnectTimeout,
	}, app.logger)
}

// RunConvert writes one validation document per model. With watch enabled
// it keeps running and regenerates whenever a source changes.
func RunConvert(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.schemaService(ctx)
	if err != nil {
		return err
	}
	out, err := app.outputProvider()
	if err != nil {
		return err
	}
	printer := report.New(app.out)
	if err := app.convert(ctx, svc, out, printer); err != nil {
		return err
	}
	if !app.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(app.config.Schema.Path, watch.WithLogger(app.logger))
	if err != nil {
		return err
	}
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		app.logger.Info("schema sources changed", slog.Any("paths", changed))
		if _, err := svc.Load(ctx); err != nil {
			app.logger.Warn("schema reload failed", slog.String("error", err.Error()))
			return
		}
		if err := app.convert(ctx, svc, out, printer); err != nil {
			app.logger.Error("convert failed", slog.String("error", err.Error()))
		}
	})
}

func (app *application) convert(ctx context.Context, svc *schemaservice.Service, out storage.Provider, printer *report.Printer) error {
	res, err := svc.WriteSchemas(ctx, out, app.models)
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}
	printer.Written(app.config.Schema.Output, res)
	return nil
}

// RunBackfill fills missing defaulted fields in the stored records of every
// selected model.
func RunBackfill(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.schemaService(ctx)
	if err != nil {
		return err
	}
	return app.backfill(ctx, svc)
}

// RunSync runs convert followed by backfill on the same parsed schema.
func RunSync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.schemaService(ctx)
	if err != nil {
		return err
	}
	out, err := app.outputProvider()
	if err != nil {
		return err
	}
	if err := app.convert(ctx, svc, out, report.New(app.out)); err != nil {
		return err
	}
	return app.backfill(ctx, svc)
}

// backfill processes the selected models one after another. Collections
// that cannot be resolved are reported and skipped; any other failure
// stops the run.
func (app *application) backfill(ctx context.Context, svc *schemaservice.Service) error {
	cfg := app.config
	selected, err := svc.ResolveModels(app.models)
	if err != nil {
		return err
	}
	schema, err := svc.Schema()
	if err != nil {
		return err
	}
	store, err := app.recordStore()
	if err != nil {
		return err
	}

	var jr *journal.DB
	if cfg.Journal.Enabled() {
		jr, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		defer jr.Close()
	}

	eng := backfill.New(store,
		backfill.WithLogger(app.logger),
		backfill.WithBatchSize(cfg.Backfill.BatchSize),
		backfill.WithDryRun(cfg.Backfill.DryRun),
		backfill.WithFillGenerated(cfg.Backfill.FillGenerated),
	)
	printer := report.New(app.out)
	results := make([]*backfill.Result, 0, len(selected))

	for _, m := range selected {
		started := time.Now()
		res, runErr := eng.BackfillCollection(ctx, m, generator.Generate(schema, m))
		printer.Backfill(res, runErr)
		results = append(results, res)

		if jr != nil {
			if _, err := jr.Record(journal.FromResult(res, runErr, started, time.Now())); err != nil {
				app.logger.Warn("journal record failed", slog.String("model", m.Name), slog.String("error", err.Error()))
			}
		}
		if runErr != nil {
			printer.Totals(results)
			return runErr
		}
	}
	printer.Totals(results)
	return nil
}

// RunHistory prints the most recent journaled backfill runs.
func RunHistory(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if !app.config.Journal.Enabled() {
		return errors.New("journal is disabled: set journal.path or --journal")
	}
	jr, err := journal.Open(app.config.Journal.Path)
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}
	defer jr.Close()

	runs, err := jr.Recent(app.historyLimit)
	if err != nil {
		return err
	}
	report.New(app.out).Runs(runs)
	return nil
}

// RunMCP serves the schema catalog over MCP on stdin/stdout. Source changes
// are picked up in the background.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.schemaService(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if w, werr := watch.New(app.config.Schema.Path, watch.WithLogger(app.logger)); werr == nil {
		go func() {
			_ = w.Run(ctx, func(ctx context.Context, _ []string) {
				if _, err := svc.Load(ctx); err != nil {
					app.logger.Warn("schema reload failed", slog.String("error", err.Error()))
				}
			})
		}()
	}

	app.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, app.version).ServeStdio()
}

// RunServe starts the read-only schema browser with live reload
// notifications.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("schema_path", cfg.Schema.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := app.schemaService(ctx)
	if err != nil {
		if svc == nil || !errors.Is(err, apperr.ErrNoSchema) {
			return err
		}
		logger.Warn("starting without a schema", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := svc.Schema(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no schema"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// Reload on source changes and notify SSE clients.
	g.Go(func() error {
		w, err := watch.New(cfg.Schema.Path, watch.WithLogger(logger))
		if err != nil {
			logger.Warn("watcher disabled", slog.String("error", err.Error()))
			return nil
		}
		return w.Run(gCtx, func(ctx context.Context, changed []string) {
			change := sse.SchemaChange{Paths: changed}
			schema, err := svc.Load(ctx)
			if err != nil {
				logger.Warn("schema reload failed", slog.String("error", err.Error()))
				change.Error = err.Error()
			} else {
				change.Models, change.Enums = len(schema.Models), len(schema.Enums)
			}
			broker.PublishSchemaChange(change)
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
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// SSE handlers return once their channels are closed.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
