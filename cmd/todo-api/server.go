package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/todo-1m/todolist/internal/app/todos"
	"github.com/todo-1m/todolist/internal/platform/config"
	"github.com/todo-1m/todolist/internal/platform/logging"
	"github.com/todo-1m/todolist/internal/platform/metrics"
	"github.com/todo-1m/todolist/internal/platform/natsutil"
	"github.com/todo-1m/todolist/services/frontend"
)

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format, "todo-api")

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	service := todos.NewService(store, logger)

	var client *natsutil.Client
	if cfg.NATS.URL != "" {
		client, err = natsutil.ConnectJetStreamWithRetry(ctx, cfg.NATS.URL, "todo-api", cfg.NATS.ConnectTimeout)
		if err != nil {
			return err
		}
		defer client.Close()
		service.Publish = natsutil.JetStreamPublisher{JS: client.JS}.Publish
		logger.Info("publishing change events", "nats", cfg.NATS.URL)
	}

	handler := todos.NewHandler(service, logger, cfg.UIOrigin)
	mux := newMux(handler, func(ctx context.Context) error {
		return checkReadiness(ctx, store, client)
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("todo api listening", "addr", cfg.Addr, "store", cfg.Store.Driver)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		return err
	}
	logger.Info("todo api stopped")
	return nil
}

func newMux(handler *todos.Handler, ready func(context.Context) error) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writePlain(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writePlain(w, http.StatusOK, "ok")
	})
	mux.Handle("/metrics", metrics.Default.Handler())
	mux.Handle("/static/", http.StripPrefix("/static/", frontend.StaticHandler()))
	mux.Handle("GET /{$}", templ.Handler(frontend.IndexPage("/api/todos")))
	mux.Handle("/", handler.Router())
	return mux
}

func checkReadiness(ctx context.Context, store todoStore, client *natsutil.Client) error {
	if client != nil {
		if err := client.Ready(); err != nil {
			return err
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
