package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/labres/internal/calendar"
	"github.com/aussiebroadwan/labres/internal/metrics"
	"github.com/aussiebroadwan/labres/internal/prefs"
	"github.com/aussiebroadwan/labres/internal/store"
	"github.com/aussiebroadwan/labres/internal/store/drivers/memory"
	"github.com/aussiebroadwan/labres/internal/store/drivers/sqlite"
	"github.com/aussiebroadwan/labres/pkg/authsdk"
	"github.com/aussiebroadwan/labres/pkg/cryptox"
	"github.com/aussiebroadwan/labres/pkg/httpx"
	"github.com/aussiebroadwan/labres/pkg/labapi"
	"github.com/aussiebroadwan/labres/pkg/slogx"
	"github.com/jonboulle/clockwork"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application wires one labctl run: storage, the session and the API
// clients built on top of it.
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockwork.Clock

	db store.Store

	Session  *authsdk.Manager
	Lab      *labapi.Client
	Calendar *calendar.Controller
	Prefs    *prefs.Service
}

type Option func(*Application)

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(app *Application) { app.clock = c }
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(app *Application) {
		app.logger = app.newLogger(w)
	}
}

// New creates an Application with all dependencies initialized. The session
// is not recovered until Start.
func New(cfg Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{cfg: cfg, clock: clockwork.NewRealClock()}
	app.logger = app.newLogger(nil)
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	app.initClients()

	return app, nil
}

func (app *Application) newLogger(w io.Writer) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "labctl",
		Version: BuildVersion,
		Env:     app.cfg.Env,
		Level:   app.cfg.LogLevel,
		Format:  app.cfg.LogFormat,
		Output:  w,
	})
}

// initStore opens the configured driver and applies migrations.
func (app *Application) initStore() error {
	if app.cfg.StoreDriver == "memory" {
		app.db = memory.NewStore()
		return nil
	}

	var opts []sqlite.Option
	key, err := cryptox.LoadMasterKey(app.cfg.MasterKeyPath)
	switch {
	case err == nil:
		sealer, err := cryptox.NewSealer(key)
		if err != nil {
			return fmt.Errorf("failed to initialize sealer: %w", err)
		}
		opts = append(opts, sqlite.WithSealer(sealer))
		app.logger.Debug("stored values are sealed")
	case errors.Is(err, cryptox.ErrNoMasterKey):
		app.logger.Debug("no master key configured, stored values are plain")
	default:
		return fmt.Errorf("failed to load master key: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db
	return nil
}

// initClients builds the outbound transport chain and everything on top.
// Requests flow auth -> logging -> rate limit -> metrics -> network.
func (app *Application) initClients() {
	base := metrics.InstrumentTransport(http.DefaultTransport)
	base = httpx.NewRateLimitTransport(base, httpx.PerSecond(app.cfg.RateLimitRPS))
	logged := slogx.NewTransport(base, app.logger)

	authClient := authsdk.NewSDKClient(app.cfg.AuthURL)
	authClient.APIKey = app.cfg.APIKey
	authClient.HTTPClient = &http.Client{Timeout: app.cfg.HTTPTimeout, Transport: logged}

	app.Session = authsdk.NewManager(authClient, tokenStorage{kv: app.db},
		authsdk.WithClock(app.clock),
		authsdk.WithLogger(app.logger.With("component", "session")),
		authsdk.WithObserver(metrics.SessionObserver{}),
		authsdk.WithRefreshInterval(app.cfg.RefreshInterval),
	)

	app.Lab = labapi.NewClient(app.cfg.APIURL, &http.Client{
		Timeout:   app.cfg.HTTPTimeout,
		Transport: app.Session.Transport(logged),
	})

	app.Calendar = calendar.New(app.Lab,
		calendar.WithClock(app.clock),
		calendar.WithLogger(app.logger.With("component", "calendar")),
	)
	app.Prefs = prefs.NewService(app.db)
}

// Start recovers the persisted session. A failed recovery leaves the
// session anonymous and is only logged.
func (app *Application) Start(ctx context.Context) bool {
	ok, err := app.Session.InitAuth(ctx)
	if err != nil {
		app.logger.Info("continuing without a session", "error", err)
	}
	return ok
}

func (app *Application) Logger() *slog.Logger {
	return app.logger
}

// Close stops the refresh timer, flushes metrics and closes the store. The
// stored refresh token is kept for the next run.
func (app *Application) Close() error {
	app.Session.Close()

	if app.cfg.MetricsFile != "" {
		if err := metrics.WriteFile(app.cfg.MetricsFile); err != nil {
			app.logger.Warn("failed to write metrics", "path", app.cfg.MetricsFile, "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}
