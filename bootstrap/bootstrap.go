// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file plus QUOTAWATCH_* environment
// overrides; the file is optional.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quotawatch/quotawatch/adapters/clock"
	"github.com/quotawatch/quotawatch/adapters/credentials"
	"github.com/quotawatch/quotawatch/adapters/github"
	"github.com/quotawatch/quotawatch/adapters/metrics"
	"github.com/quotawatch/quotawatch/adapters/notify"
	"github.com/quotawatch/quotawatch/adapters/sqlite"
	"github.com/quotawatch/quotawatch/app"
	"github.com/quotawatch/quotawatch/config"
	"github.com/quotawatch/quotawatch/ports"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger    zerolog.Logger
	Holder    *config.Holder
	DB        *sqlite.DB
	Metrics   *metrics.Collector
	Scheduler *app.Scheduler

	httpServer *http.Server
	creds      ports.CredentialProvider
	sink       ports.NotificationSink
}

// Options provides optional knobs for application initialization.
type Options struct {
	// ConfigPath is the YAML config file. Empty or missing means defaults
	// plus environment overrides, without file watching.
	ConfigPath string

	// WithoutServer disables the status HTTP server regardless of config.
	// Used by one-shot commands.
	WithoutServer bool

	// WithoutMetrics skips registering Prometheus collectors on the default
	// registry. Used by one-shot commands so repeated calls do not collide.
	WithoutMetrics bool
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	holder, err := newHolder(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg := holder.Get()

	logger := setupLogger(cfg)
	a := &App{Logger: logger, Holder: holder}
	holder.SetLogger(logger)

	logger.Info().Str("product", cfg.GitHub.Product).Msg("initializing quotawatch")

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	a.DB = db
	logger.Info().Str("dsn", cfg.Database.DSN).Msg("database initialized")

	if !opts.WithoutMetrics {
		a.Metrics = metrics.New()
	}

	a.creds = buildCredentials(cfg)
	a.sink = buildSink(cfg, logger)

	source := github.NewClient(github.ClientConfig{
		BaseURL: cfg.GitHub.APIURL,
		Timeout: cfg.GitHub.FetchTimeout,
	})

	a.Scheduler = app.NewScheduler(app.SchedulerConfig{
		Source:  source,
		Creds:   a.creds,
		Sink:    a.sink,
		Store:   sqlite.NewStateStore(db),
		Clock:   clock.Real{},
		Holder:  holder,
		Logger:  logger,
		Metrics: a.Metrics,
	})

	holder.OnChange(func(c *config.Config) {
		a.Scheduler.SetInterval(c.Refresh.Interval)
		if lvl, err := zerolog.ParseLevel(c.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
		if a.Metrics != nil {
			a.Metrics.ConfigReloads.Inc()
		}
	})
	holder.OnReloadError(func(error) {
		if a.Metrics != nil {
			a.Metrics.ConfigReloadErrors.Inc()
		}
	})

	if cfg.Server.Enabled && !opts.WithoutServer {
		a.httpServer = newStatusServer(a, cfg)
	}

	return a, nil
}

// Run starts the refresh loop, the optional status server, config
// watching, and blocks until a termination signal arrives.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watching disabled")
	}
	a.Holder.WatchSignals()

	errCh := make(chan error, 2)

	go func() {
		if err := a.Scheduler.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("scheduler: %w", err)
		}
	}()

	if a.httpServer != nil {
		a.Logger.Info().Str("addr", a.httpServer.Addr).Msg("status server listening")
		go func() {
			if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("status server: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	cancel()
	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Holder.Stop()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("status server shutdown error")
		}
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// RefreshOnce runs a single startup-trigger refresh cycle. Used by the
// one-shot check command.
func (a *App) RefreshOnce(ctx context.Context) app.Outcome {
	return a.Scheduler.Refresh(ctx, app.TriggerStartup)
}

func newHolder(path string) (*config.Holder, error) {
	bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return config.NewHolder(path, bootLogger)
		}
	}

	cfg, err := config.LoadOrDefault("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return config.NewStaticHolder(cfg, bootLogger), nil
}

func buildCredentials(cfg *config.Config) ports.CredentialProvider {
	chain := credentials.Chain{credentials.NewEnv()}
	if cfg.Credentials.TokenFile != "" {
		chain = append(chain, &credentials.File{Path: cfg.Credentials.TokenFile})
	}
	if cfg.Credentials.UseGHCLI {
		chain = append(chain, credentials.NewGHConfig())
	}
	return chain
}

func buildSink(cfg *config.Config, logger zerolog.Logger) ports.NotificationSink {
	sinks := []ports.NotificationSink{&notify.Log{Logger: logger}}

	if cfg.Notifications.Desktop {
		sinks = append(sinks, notify.NewCommand(cfg.Notifications.DesktopCommand, logger))
	}
	if cfg.Notifications.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(notify.WebhookConfig{URL: cfg.Notifications.WebhookURL}))
	}

	if len(sinks) == 1 {
		return sinks[0]
	}
	return &notify.Multi{Sinks: sinks, Logger: logger}
}

func setupLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
