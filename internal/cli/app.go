package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"financas/internal/backend"
	"financas/internal/config"
	"financas/internal/dashboard"
	"financas/internal/log"
	"financas/internal/metrics"
	"financas/internal/store"
)

// openTimeout bounds how long one-shot commands wait for the first
// snapshot.
const openTimeout = 15 * time.Second

// App is the wired engine: backend collection, store and dashboard.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    *store.Store
	Board    *dashboard.Board
	Backend  *backend.BackendResult
}

// NewApp creates the backend selected by cfg and the store and dashboard
// on top of it. No session is opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger, m).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	loc := cfg.Location()
	st := store.New(result.Collection,
		store.WithCategories(cfg.CategorySet()),
		store.WithLogger(logger),
		store.WithMetrics(m),
		store.WithLocation(loc),
	)
	board := dashboard.New(st,
		dashboard.WithLocation(loc),
		dashboard.WithLogger(logger),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Metrics:  m,
		Store:    st,
		Board:    board,
		Backend:  result,
	}, nil
}

// Open starts a session for owner and waits for its first snapshot.
func (a *App) Open(ctx context.Context, owner string) (store.State, error) {
	if err := a.Store.Open(ctx, owner); err != nil {
		return store.State{}, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	st, err := a.Store.Ready(waitCtx)
	if err != nil {
		return st, fmt.Errorf("load transactions for %s: %w", owner, err)
	}
	return st, nil
}

// Close ends the session and releases the backend.
func (a *App) Close() error {
	a.Board.Close()
	a.Store.Close()
	if a.Backend.Cleanup != nil {
		return a.Backend.Cleanup()
	}
	return nil
}
