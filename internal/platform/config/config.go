// Package config assembles the server configuration from, in increasing
// priority: built-in defaults, an optional TOML file, and the environment.
// Command-line flags are layered on top by the caller.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/todo-1m/todolist/internal/platform/env"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

const (
	DefaultAddr            = ":8080"
	DefaultUIOrigin        = "*"
	DefaultDataFile        = "data/todos.json"
	DefaultSQLitePath      = "data/todos.db"
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Addr            string        `toml:"addr"`
	UIOrigin        string        `toml:"ui_origin"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`

	Store StoreConfig `toml:"store"`
	NATS  NATSConfig  `toml:"nats"`
	Log   LogConfig   `toml:"log"`
}

type StoreConfig struct {
	Driver      string `toml:"driver"`
	FilePath    string `toml:"file_path"`
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`
}

// NATSConfig enables change-event publishing when URL is set.
type NATSConfig struct {
	URL            string        `toml:"url"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() *Config {
	return &Config{
		Addr:            DefaultAddr,
		UIOrigin:        DefaultUIOrigin,
		ShutdownTimeout: DefaultShutdownTimeout,
		Store: StoreConfig{
			Driver:     DriverFile,
			FilePath:   DefaultDataFile,
			SQLitePath: DefaultSQLitePath,
		},
		NATS: NATSConfig{ConnectTimeout: 20 * time.Second},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load returns defaults overlaid with the TOML file at path (skipped when
// path is empty) and then the environment. The result is not validated:
// callers apply their own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
}

func (c *Config) applyEnv() {
	c.Addr = env.String("TODO_ADDR", c.Addr)
	c.UIOrigin = env.String("TODO_UI_ORIGIN", c.UIOrigin)
	c.ShutdownTimeout = env.Duration("TODO_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.Store.Driver = env.String("TODO_STORE_DRIVER", c.Store.Driver)
	c.Store.FilePath = env.String("TODO_DATA_FILE", c.Store.FilePath)
	c.Store.DatabaseURL = env.String("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.SQLitePath = env.String("TODO_SQLITE_PATH", c.Store.SQLitePath)

	c.NATS.URL = env.String("NATS_URL", c.NATS.URL)
	c.NATS.ConnectTimeout = env.Duration("NATS_CONNECT_TIMEOUT", c.NATS.ConnectTimeout)

	c.Log.Level = env.String("TODO_LOG_LEVEL", c.Log.Level)
	c.Log.Format = env.String("TODO_LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	c.normalize()
	switch c.Store.Driver {
	case DriverFile:
		if c.Store.FilePath == "" {
			return fmt.Errorf("store.file_path is required for the %q driver", DriverFile)
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the %q driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the %q driver", DriverSQLite)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}
