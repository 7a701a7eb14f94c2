package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/todo-1m/todolist/internal/platform/config"
	"github.com/todo-1m/todolist/internal/platform/env"
)

type runFunc func(ctx context.Context, cfg *config.Config) error

// options holds flag values. Only flags set on the command line override the
// file and environment.
type options struct {
	configPath  string
	addr        string
	uiOrigin    string
	storeDriver string
	dataFile    string
	databaseURL string
	sqlitePath  string
	natsURL     string
	logLevel    string
	logFormat   string
}

func newRootCommand(run runFunc) *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "todo-api",
		Short: "Serve a single-user todo list over HTTP",
		Long: `todo-api serves a todo list as a JSON API and a small web page.

CONFIGURATION:
  Priority order: command-line flags > environment variables > config file > defaults

  TODO_CONFIG            TOML config file
  TODO_ADDR              listen address (default :8080)
  TODO_UI_ORIGIN         allowed CORS origin (default *)
  TODO_STORE_DRIVER      file | postgres | sqlite | memory (default file)
  TODO_DATA_FILE         JSON file for the file driver (default data/todos.json)
  DATABASE_URL           connection string for the postgres driver
  TODO_SQLITE_PATH       database file for the sqlite driver (default data/todos.db)
  NATS_URL               publish change events to JetStream when set
  TODO_LOG_LEVEL         debug | info | warn | error (default info)
  TODO_LOG_FORMAT        text | json | logfmt (default text)
  TODO_SHUTDOWN_TIMEOUT  graceful shutdown timeout (default 10s)`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", env.String("TODO_CONFIG", ""), "path to a TOML config file")
	flags.StringVar(&opts.addr, "addr", "", "listen address")
	flags.StringVar(&opts.uiOrigin, "ui-origin", "", "allowed CORS origin")
	flags.StringVar(&opts.storeDriver, "store", "", "store driver: file, postgres, sqlite or memory")
	flags.StringVar(&opts.dataFile, "data-file", "", "JSON file for the file driver")
	flags.StringVar(&opts.databaseURL, "database-url", "", "postgres connection string")
	flags.StringVar(&opts.sqlitePath, "sqlite-path", "", "database file for the sqlite driver")
	flags.StringVar(&opts.natsURL, "nats-url", "", "NATS server for change events")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "", "text, json or logfmt")
	return cmd
}

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	override := func(name string, dst *string, value string) {
		if cmd.Flags().Changed(name) {
			*dst = value
		}
	}
	override("addr", &cfg.Addr, opts.addr)
	override("ui-origin", &cfg.UIOrigin, opts.uiOrigin)
	override("store", &cfg.Store.Driver, opts.storeDriver)
	override("data-file", &cfg.Store.FilePath, opts.dataFile)
	override("database-url", &cfg.Store.DatabaseURL, opts.databaseURL)
	override("sqlite-path", &cfg.Store.SQLitePath, opts.sqlitePath)
	override("nats-url", &cfg.NATS.URL, opts.natsURL)
	override("log-level", &cfg.Log.Level, opts.logLevel)
	override("log-format", &cfg.Log.Format, opts.logFormat)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
