// Package app assembles an Oracle and its stores from configuration and
// routes chat messages to it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	oracle "github.com/oraclelang/oracle"
	"github.com/oraclelang/oracle/cast"
	"github.com/oraclelang/oracle/glyph"
	"github.com/oraclelang/oracle/history"
	"github.com/oraclelang/oracle/internal/config"
	"github.com/oraclelang/oracle/interpret"
	"github.com/oraclelang/oracle/limit"
	"github.com/oraclelang/oracle/observer"
	"github.com/oraclelang/oracle/provider/resolve"
	"github.com/oraclelang/oracle/store/postgres"
	"github.com/oraclelang/oracle/store/sqlite"
)

// App is a configured Oracle together with the concrete stores the
// admin operations need.
type App struct {
	cfg      config.Config
	oracle   *oracle.Oracle
	limiter  *limit.Limiter
	history  history.Store
	interp   *interpret.Interpreter
	location *time.Location
	logger   *slog.Logger
	closers  []func(context.Context) error
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	onFault func(error)
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFaultHandler is called with every hexagram data-integrity failure.
func WithFaultHandler(fn func(error)) Option {
	return func(o *options) { o.onFault = fn }
}

// New validates cfg, opens the configured stores and builds the Oracle.
// Call Close when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy, err := limit.ParsePolicy(cfg.Limit.Window, loc, cfg.Limit.ResetHour)
	if err != nil {
		return nil, err
	}
	style, err := interpret.ParseStyle(cfg.Display.Style)
	if err != nil {
		return nil, err
	}
	table, err := glyph.Load()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, location: loc, logger: o.logger}
	usage, err := a.openStores(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.limiter = limit.New(usage, policy, cfg.Limit.MaxPerWindow, limit.WithLogger(o.logger))
	a.interp = interpret.New(table, interpret.WithStyle(style))

	var (
		gate     oracle.Limiter      = a.limiter
		recorder oracle.HistoryStore = a.history
		provider oracle.Provider
		inst     *observer.Instruments
	)
	if cfg.LLM.Enabled {
		provider, err = resolve.Provider(resolve.Config{
			Provider:    cfg.LLM.Provider,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Logger:      o.logger,
		})
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		inst, shutdown, err = observer.Init(ctx, pricing(cfg.Observer.Pricing))
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("observer init: %w", err)
		}
		a.closers = append(a.closers, shutdown)
		gate = observer.WrapLimiter(gate, inst)
		recorder = observer.WrapHistory(recorder, inst)
		if provider != nil {
			provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		}
	}

	oracleOpts := []oracle.Option{
		oracle.WithLogger(o.logger),
		oracle.WithLocation(loc),
	}
	if o.onFault != nil {
		oracleOpts = append(oracleOpts, oracle.WithFaultHandler(o.onFault))
	}
	if provider != nil {
		var aug oracle.Augmenter = interpret.NewAugmenter(provider,
			interpret.WithTimeout(cfg.LLM.Timeout),
			interpret.WithLogger(o.logger))
		if inst != nil {
			aug = observer.WrapAugmenter(aug, inst)
		}
		oracleOpts = append(oracleOpts, oracle.WithAugmenter(aug))
	}
	a.oracle = oracle.New(cast.New(), a.interp, gate, recorder, oracleOpts...)

	o.logger.Info("app: ready",
		"driver", cfg.Database.Driver,
		"limit", cfg.Limit.MaxPerWindow,
		"window", policy,
		"llm", cfg.LLM.Enabled,
		"observer", cfg.Observer.Enabled)
	return a, nil
}

// openStores sets a.history and returns the usage store for the limiter.
func (a *App) openStores(ctx context.Context) (limit.Store, error) {
	db := a.cfg.Database
	max := a.cfg.History.MaxRecords
	switch db.Driver {
	case "memory":
		a.history = history.NewMemory(max)
		return limit.NewMemoryStore(), nil

	case "sqlite":
		s := sqlite.New(db.Path, sqlite.WithLogger(a.logger), sqlite.WithMaxRecords(max))
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("history init: %w", err)
		}
		u := sqlite.NewUsageStore(s.DB(), sqlite.WithUsageLogger(a.logger))
		if err := u.Init(ctx); err != nil {
			return nil, fmt.Errorf("usage init: %w", err)
		}
		a.history = s
		return u, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, db.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		s := postgres.New(pool, postgres.WithMaxRecords(max), postgres.WithLogger(a.logger))
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("history init: %w", err)
		}
		u := postgres.NewUsageStore(pool, postgres.WithLogger(a.logger))
		if err := u.Init(ctx); err != nil {
			return nil, fmt.Errorf("usage init: %w", err)
		}
		a.history = s
		return u, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", db.Driver)
}

func pricing(in map[string]config.ObserverPricing) map[string]observer.ModelPricing {
	out := make(map[string]observer.ModelPricing, len(in))
	for model, p := range in {
		out[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
	}
	return out
}

func (a *App) Oracle() *oracle.Oracle { return a.oracle }
func (a *App) Limiter() *limit.Limiter { return a.limiter }
func (a *App) History() history.Store { return a.history }
func (a *App) Interpreter() *interpret.Interpreter { return a.interp }
func (a *App) Location() *time.Location { return a.location }
func (a *App) Config() config.Config { return a.cfg }

// Close releases stores and flushes telemetry, last opened first.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
