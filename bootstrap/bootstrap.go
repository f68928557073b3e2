// Package bootstrap wires the engine, loader, metrics and logging from a
// configuration and runs the schema watcher.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/modeltype/adapters/clock"
	"github.com/artpar/modeltype/adapters/idgen"
	"github.com/artpar/modeltype/adapters/metrics"
	"github.com/artpar/modeltype/config"
	"github.com/artpar/modeltype/core/events"
	"github.com/artpar/modeltype/core/loader"
	"github.com/artpar/modeltype/core/model"
	"github.com/artpar/modeltype/core/schema"
	"github.com/artpar/modeltype/ports"
)

// App holds the wired components.
type App struct {
	Logger  zerolog.Logger
	Config  *config.Config
	Metrics *metrics.Collector // nil unless metrics are enabled
	Engine  *model.Engine
	Loader  *loader.Loader
	Events  *events.Bus

	holder  *config.Holder
	watcher *config.DirWatcher
}

// Options overrides the defaults used by NewWithOptions.
type Options struct {
	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer

	// Registerer receives the metrics. Defaults to the global registry.
	Registerer prometheus.Registerer

	// Clock is read by now() in definitions. Defaults to the system clock.
	Clock ports.Clock

	// Holder is the config holder to follow for reloads, if any.
	Holder *config.Holder
}

// New creates the application from cfg with default options.
func New(cfg *config.Config) (*App, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates the application from cfg.
func NewWithOptions(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}

	logger := NewLogger(cfg.Logging, opts.Output)

	ids, ok := idgen.ForFormat(cfg.Engine.IDFormat)
	if !ok {
		return nil, fmt.Errorf("unknown id format %q", cfg.Engine.IDFormat)
	}

	a := &App{
		Logger: logger,
		Config: cfg,
		Events: events.NewBus(logger.With().Str("component", "events").Logger()),
		holder: opts.Holder,
	}

	engineOpts := []model.Option{
		model.WithLogger(logger.With().Str("component", "engine").Logger()),
		model.WithMaxDepth(cfg.Engine.MaxDepth),
		model.WithIDGenerator(ids),
	}

	if cfg.Metrics.Enabled {
		if opts.Registerer != nil {
			a.Metrics = metrics.NewWithRegistry(opts.Registerer)
		} else {
			a.Metrics = metrics.New()
		}
		engineOpts = append(engineOpts, model.WithMetrics(a.Metrics))
		logger.Debug().Msg("prometheus metrics enabled")
	}

	a.Engine = model.NewEngine(engineOpts...)
	a.Loader = loader.New(a.Engine,
		loader.WithLogger(logger.With().Str("component", "loader").Logger()),
		loader.WithClock(opts.Clock),
		loader.WithEvents(a.Events),
	)

	if a.holder != nil {
		a.holder.OnChange(a.applyConfig)
	}

	return a, nil
}

// LoadSchemas defines every model found in the configured schema directory.
func (a *App) LoadSchemas() ([]*model.Model, error) {
	models, err := a.Loader.LoadDir(a.Config.Schemas.Dir)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	a.Logger.Info().
		Str("dir", a.Config.Schemas.Dir).
		Int("models", len(models)).
		Msg("schemas loaded")
	return models, nil
}

// ReloadSchemas reloads the schema directory and records the outcome.
func (a *App) ReloadSchemas() error {
	_, err := a.Loader.Reload()
	if a.Metrics != nil {
		a.Metrics.RecordReload(err)
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("schema reload failed, keeping previous models")
		return err
	}
	return nil
}

// Watch reloads the schema directory whenever a definition file changes,
// and on SIGHUP, until ctx is done or the process is interrupted.
// LoadSchemas must have succeeded first.
func (a *App) Watch(ctx context.Context) error {
	a.watcher = config.NewDirWatcher(
		a.Config.Schemas.Dir,
		schema.IsDefinitionFile,
		a.Config.Schemas.Debounce,
		a.Logger,
		func() { a.ReloadSchemas() },
	)
	if err := a.watcher.Start(); err != nil {
		return fmt.Errorf("watch schemas: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	if a.holder != nil {
		// the holder reloads on SIGHUP and reports back through applyConfig
		a.holder.WatchSignals()
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	} else {
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	}
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			a.Shutdown()
			return nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				a.Logger.Info().Msg("received SIGHUP, reloading schemas")
				a.ReloadSchemas()
				continue
			}
			a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
			a.Shutdown()
			return nil
		}
	}
}

// Shutdown stops the watchers.
func (a *App) Shutdown() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.holder != nil {
		a.holder.Stop()
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	a.ReloadSchemas()
}

// NewLogger builds a logger from the logging configuration. Unknown levels
// fall back to info.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(out).With().Timestamp().Logger()
}
