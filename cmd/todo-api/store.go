package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/todo-1m/todolist/internal/app/todos"
	"github.com/todo-1m/todolist/internal/platform/config"
	"github.com/todo-1m/todolist/internal/platform/dbpool"
	"github.com/todo-1m/todolist/internal/storage/jsonfile"
	"github.com/todo-1m/todolist/internal/storage/memory"
	"github.com/todo-1m/todolist/internal/storage/postgres"
	"github.com/todo-1m/todolist/internal/storage/sqlite"
)

const postgresReadyTimeout = 30 * time.Second

// todoStore is a persistence adapter that can also report readiness.
type todoStore interface {
	todos.Store
	Ping(ctx context.Context) error
}

// openStore builds the adapter named by cfg.Driver. The returned close
// function releases its resources and is never nil.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *log.Logger) (todoStore, func(), error) {
	switch cfg.Driver {
	case config.DriverFile:
		return jsonfile.New(cfg.FilePath), func() {}, nil
	case config.DriverMemory:
		logger.Warn("using the in-memory store, todos are lost on exit")
		return memory.New(), func() {}, nil
	case config.DriverSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case config.DriverPostgres:
		pool, err := dbpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres pool: %w", err)
		}
		store := postgres.New(pool)
		err = dbpool.WaitReady(ctx, logger, postgresReadyTimeout, func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
			return store.EnsureSchema(ctx)
		})
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
