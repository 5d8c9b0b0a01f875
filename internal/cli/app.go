package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/config"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/engine"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/metrics"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/notify"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/predictor"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/schedule"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/store"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/telemetry"
)

const (
	meterName       = "github.com/mustafanordflytt/nordflytt-offerthantering-sub015/estimengine"
	shutdownTimeout = 10 * time.Second
)

// App is a fully wired engine plus the resources it owns.
type App struct {
	Config config.Config
	Engine *engine.Engine

	logger  *slog.Logger
	closers []func(context.Context) error
}

// appDeps lets tests replace clocks and ids.
type appDeps struct {
	now func() time.Time
	ids decision.IDGenerator
}

// openApp loads configuration and wires store, predictor, telemetry,
// notifiers and engine, then restores metrics from the store.
func openApp(ctx context.Context, opts *RootOptions, deps appDeps) (*App, error) {
	logger := slog.Default()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	app := &App{Config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close(context.Background())
		}
	}()

	rates := estimate.DefaultRates()
	if cfg.RatesPath != "" {
		rates, err = estimate.LoadRateTable(cfg.RatesPath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load rates", err)
		}
		logger.Debug("rates loaded", "path", cfg.RatesPath)
	}

	st, err := openStore(ctx, cfg.Store, app)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	aggOpts := []metrics.Option{metrics.WithLogger(logger)}
	if cfg.Telemetry.Enabled() {
		provider, err := telemetry.New(ctx, telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to start telemetry", err)
		}
		app.closers = append(app.closers, provider.Shutdown)
		aggOpts = append(aggOpts, metrics.WithMeter(provider.Meter(meterName)))
		logger.Debug("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	engineOpts := []engine.EngineOption{
		engine.WithConfig(cfg.EngineConfig()),
		engine.WithStore(st),
		engine.WithMetrics(metrics.New(cfg.ConfidenceThreshold, cfg.MLFallbackEnabled, aggOpts...)),
		engine.WithLogger(logger),
	}
	if cfg.MLFallbackEnabled {
		engineOpts = append(engineOpts, engine.WithPredictor(newPredictor(cfg.Predictor)))
	}
	if deps.now != nil {
		engineOpts = append(engineOpts, engine.WithNow(deps.now))
	}
	if deps.ids != nil {
		engineOpts = append(engineOpts, engine.WithIDGenerator(deps.ids))
	}

	eng, err := engine.New(rates, engineOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	app.Engine = eng
	// Registered last so it runs first: the bus drains before the store,
	// Redis client and exporter go away.
	app.closers = append(app.closers, eng.Close)

	if err := app.attachNotifiers(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to attach notifiers", err)
	}

	now := time.Now
	if deps.now != nil {
		now = deps.now
	}
	if err := eng.Restore(ctx, schedule.DayStart(now(), cfg.Location)); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to restore metrics", err)
	}

	ok = true
	return app, nil
}

func openStore(ctx context.Context, sc config.StoreConfig, app *App) (decision.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return decision.NewMemoryStore(), nil
	case config.DriverPostgres:
		st, err := store.OpenPostgres(ctx, sc.DSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return st.Close() })
		return st, nil
	case config.DriverSQLite:
		st, err := store.Open(sc.DSN)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return st.Close() })
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

func newPredictor(pc config.PredictorConfig) predictor.Predictor {
	switch pc.Kind {
	case config.PredictorAnthropic:
		var opts []predictor.AnthropicOption
		if pc.Model != "" {
			opts = append(opts, predictor.WithModel(pc.Model))
		}
		return predictor.NewAnthropicPredictor(pc.APIKey, opts...)
	default:
		return predictor.NewHTTPPredictor(pc.Endpoint, &http.Client{})
	}
}

func (a *App) attachNotifiers() error {
	bus := a.Engine.Bus()

	if a.Config.Slack.Enabled() {
		api := slack.New(a.Config.Slack.BotToken)
		n := notify.NewSlackNotifier(api, a.Config.Slack.ReviewChannel, a.logger)
		if _, err := n.Attach(bus); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
		a.logger.Debug("slack review notifications enabled", "channel", a.Config.Slack.ReviewChannel)
	}

	if a.Config.Redis.Enabled() {
		rc := a.Config.Redis
		client := notify.NewRedisClient(rc.Addr, rc.Password, rc.DB)
		// Prepended so it closes after the bus has drained.
		a.closers = append([]func(context.Context) error{func(context.Context) error { return client.Close() }}, a.closers...)
		f := notify.NewRedisForwarder(client, rc.ChannelPrefix, a.logger)
		if _, err := f.Attach(bus); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		a.logger.Debug("redis event forwarding enabled", "addr", rc.Addr)
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// closeApp closes a with a bounded timeout, logging failures.
func closeApp(a *App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		slog.Error("shutdown incomplete", "error", err)
	}
}
