// Package application assembles the merge service from configuration.
// Both the HTTP server and the command-line merger start here.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JonMunkholm/salesmerge/internal/bridge"
	"github.com/JonMunkholm/salesmerge/internal/config"
	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/history"
	"github.com/JonMunkholm/salesmerge/internal/sheet"
)

// App is a wired service plus the resources it owns.
type App struct {
	Service *core.Service
	History history.Store

	closers []func()
}

// Close releases the database pool, if any.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
}

// NewBackend returns the configured parser. The external backend always
// falls back to the in-process parser.
func NewBackend(cfg config.ParserConfig, logger *slog.Logger) core.Backend {
	inProcess := sheet.NewParser(logger)
	if !strings.EqualFold(cfg.Backend, config.BackendExternal) {
		return inProcess
	}
	external := bridge.NewExternal(cfg.Command, cfg.Args, cfg.Timeout, logger)
	return bridge.NewFallback(external, inProcess, logger)
}

// NewHistory opens PostgreSQL history when a database URL is configured
// and falls back to an in-memory log otherwise.
func NewHistory(ctx context.Context, cfg config.DatabaseConfig) (history.Store, func(), error) {
	if !cfg.HasDatabase() {
		return history.NewMemoryStore(cfg.HistoryCapacity), func() {}, nil
	}
	store, err := history.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// New wires a Service from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, closeStore, err := NewHistory(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	svc, err := core.NewService(core.ServiceConfig{
		Ingester: core.NewIngester(NewBackend(cfg.Parser, logger),
			core.WithMaxFileSize(cfg.Upload.MaxFileSize),
			core.WithCodepage(cfg.Parser.Codepage),
			core.WithDatesAsValues(cfg.Parser.DatesAsValues),
			core.WithLogger(logger),
		),
		Merger:   core.NewMerger(cfg.Merge.Collation, logger),
		Exporter: sheet.NewWriter(),
		History:  store,
		Limiter:  core.NewParseLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		Logger:   logger,
	})
	if err != nil {
		closeStore()
		return nil, err
	}

	return &App{Service: svc, History: store, closers: []func(){closeStore}}, nil
}
