// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/api"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/index"
	"github.com/starford/quill/internal/logging"
	"github.com/starford/quill/internal/mcpserver"
	"github.com/starford/quill/internal/metrics"
	"github.com/starford/quill/internal/noteservice"
	"github.com/starford/quill/internal/notestore"
	"github.com/starford/quill/internal/prefs"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/storage"
)

// components are the long-lived pieces shared by the HTTP and MCP runtimes.
type components struct {
	cfg     *Config
	logger  *slog.Logger
	files   *storage.FS
	clips   fs.FS
	db      *index.DB // nil unless the sqlite driver is selected
	notes   *noteservice.Service
	prefs   *prefs.Service
	caps    audio.Capabilities
	broker  *sse.Broker // nil in MCP mode
	metrics *metrics.Metrics
}

// init builds the logger. When out is nil logs go to stdout and the
// configured log file; the returned func releases the file.
func (a *application) init(out io.Writer) (*slog.Logger, func(), error) {
	if a.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	noop := func() {}
	if a.logger != nil {
		return a.logger, noop, nil
	}
	cfg := a.config.App.Logging()
	if out != nil {
		return logging.NewWithWriter(cfg, out), noop, nil
	}
	logger, closer := logging.New(cfg)
	return logger, func() { _ = closer.Close() }, nil
}

// build opens storage and wires the services. withEvents adds the SSE broker
// and metrics.
func (a *application) build(logger *slog.Logger, withEvents bool) (*components, error) {
	cfg := a.config
	c := &components{cfg: cfg, logger: logger}

	files, err := storage.NewFS(cfg.Storage.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}
	c.files = files
	if c.clips, err = files.Sub(audio.ClipDir); err != nil {
		c.Close()
		return nil, fmt.Errorf("init vault: %w", err)
	}

	storeOpts := []notestore.Option{
		notestore.WithSkipHandler(func(id string, err error) {
			logger.Warn("skipping stored note", slog.String("id", id), slog.String("error", err.Error()))
		}),
	}
	prefsRepo := prefs.Repository(prefs.NewMemoryRepository())

	switch cfg.Storage.Driver {
	case DriverSQLite:
		db, err := index.Open(cfg.Storage.SQLitePath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		c.db = db
		storeOpts = append(storeOpts, notestore.WithBackend(db))
		prefsRepo = db
	case DriverMarkdown:
		storeOpts = append(storeOpts, notestore.WithBackend(storage.NewMarkdownBackend(files)))
	}

	store, err := notestore.Open(storeOpts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("load notes: %w", err)
	}

	svcOpts := []noteservice.Option{noteservice.WithLogger(logger)}
	if withEvents {
		c.broker = sse.NewBroker(cfg.Events.Throttle,
			sse.WithKeepAlive(cfg.Events.KeepAlive),
			sse.WithReplay(cfg.Events.Replay),
		)
		c.metrics = metrics.New(c.broker.ClientCount)
		svcOpts = append(svcOpts, noteservice.WithPublisher(c.broker), noteservice.WithMetrics(c.metrics))
	}
	c.notes = noteservice.NewService(store, svcOpts...)
	c.prefs = prefs.NewService(prefsRepo)

	switch {
	case a.audio != nil:
		c.caps = audio.Select(*a.audio)
	case cfg.Audio.Enabled:
		c.caps = audio.Select(audio.Capabilities{
			Recorder: audio.NewClipRecorder(files, cfg.Audio.Ext, cfg.Audio.MaxBytes),
		})
	default:
		c.caps = audio.Disabled()
	}

	logger.Info("Notes loaded",
		slog.String("driver", cfg.Storage.Driver),
		slog.Int("count", c.notes.Count()))
	return c, nil
}

// Close releases the broker, the database and the vault.
func (c *components) Close() {
	if c.broker != nil {
		c.broker.Close()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("close sqlite", slog.String("error", err.Error()))
		}
	}
	if c.files != nil {
		if err := c.files.Close(); err != nil {
			c.logger.Error("close vault", slog.String("error", err.Error()))
		}
	}
}

// handler builds the root HTTP router.
func (c *components) handler() http.Handler {
	cfg := c.cfg
	deps := api.Deps{
		Notes:         c.notes,
		Prefs:         c.prefs,
		Audio:         c.caps,
		Clips:         c.clips,
		MaxAudioBytes: cfg.Audio.MaxBytes,
		Logger:        c.logger,
		AuthEnabled:   cfg.Auth.AuthEnabled(),
		Token:         cfg.Auth.Token,
	}
	if c.broker != nil {
		deps.Events = c.broker
	}
	apiRouter := api.NewRouter(deps)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.AccessLog(c.logger))
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if c.db != nil {
			if err := c.db.Ping(); err != nil {
				c.logger.Warn("readiness check failed", slog.String("error", err.Error()))
				writeStatus(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ok")
	})

	if c.metrics != nil {
		r.Handle("/metrics", c.metrics.Handler())
	}
	r.Mount("/api", apiRouter)
	r.Mount("/audio", api.NewAudioFiles(c.clips, c.logger))
	return r
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = fmt.Fprintf(w, `{"status":%q}`, status)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	logger, release, err := app.init(nil)
	if err != nil {
		return err
	}
	defer release()
	slog.SetDefault(logger)

	cfg := app.config
	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("vault_path", cfg.Storage.VaultPath),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("audio_enabled", cfg.Audio.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := app.build(logger, true)
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           c.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Pick up notes edited outside the app.
	if cfg.Storage.Driver == DriverMarkdown {
		g.Go(func() error {
			err := storage.WatchNotes(gCtx, c.files.Root(), cfg.Events.Debounce, logger, func(id string) {
				_ = c.notes.Refresh(gCtx, id)
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Open event streams would otherwise hold Shutdown until the timeout.
		c.broker.Close()
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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}

	logger, release, err := app.init(os.Stderr)
	if err != nil {
		return err
	}
	defer release()
	slog.SetDefault(logger)

	c, err := app.build(logger, false)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := mcpserver.New(c.notes, app.version,
		mcpserver.WithRecorder(c.caps.Recorder),
		mcpserver.WithLogger(logger))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}
