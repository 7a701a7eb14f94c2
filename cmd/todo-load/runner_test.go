package main

import (
	"bytes"
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/todo-1m/todolist/internal/app/todos"
	"github.com/todo-1m/todolist/internal/storage/memory"
)

func newTestAPI(t *testing.T, store *memory.Store) *httptest.Server {
	t.Helper()
	logger := log.New(&bytes.Buffer{})
	handler := todos.NewHandler(todos.NewService(store, logger), logger, "*")

	mux := http.NewServeMux()
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", handler.Router())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRunner(baseURL string) *runner {
	cfg := loadConfig{
		BaseURL:        baseURL,
		Workers:        4,
		Duration:       300 * time.Millisecond,
		Rate:           50,
		RequestTimeout: 2 * time.Second,
		StartupWait:    2 * time.Second,
	}
	return newRunner(cfg, log.New(&bytes.Buffer{}))
}

func TestRunAction_TracksStoreContents(t *testing.T) {
	store := memory.New()
	srv := newTestAPI(t, store)
	r := newTestRunner(srv.URL)
	rng := rand.New(rand.NewSource(1))

	for range 200 {
		r.runAction(context.Background(), rng)
	}

	if r.failures.Load() != 0 {
		t.Fatalf("expected no failures, got %d", r.failures.Load())
	}
	if r.success.Load() != 200 {
		t.Fatalf("expected 200 successful requests, got %d", r.success.Load())
	}

	var stored []string
	for _, todo := range store.Snapshot() {
		stored = append(stored, todo.ID)
	}
	tracked := slices.Clone(r.ids)
	slices.Sort(stored)
	slices.Sort(tracked)
	if !slices.Equal(stored, tracked) {
		t.Fatalf("tracked ids %v do not match stored ids %v", tracked, stored)
	}
}

func TestRun_ConcurrentWorkers(t *testing.T) {
	srv := newTestAPI(t, memory.New())
	r := newTestRunner(srv.URL)

	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if r.success.Load() == 0 {
		t.Fatalf("expected some successful requests")
	}
	if r.failures.Load() != 0 {
		t.Fatalf("expected no failures, got %d", r.failures.Load())
	}
	if r.workers.Load() != 0 {
		t.Fatalf("workers still marked active: %d", r.workers.Load())
	}
}

func TestRun_FailsWhenAPINeverReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := newTestRunner(srv.URL)
	r.cfg.StartupWait = 50 * time.Millisecond
	if err := r.run(context.Background()); err == nil {
		t.Fatalf("expected readiness error")
	}
}

func TestLoadConfigValidate(t *testing.T) {
	cfg := loadConfig{BaseURL: " http://localhost:8080/ ", Workers: 1, Rate: 1}
	if err := cfg.validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("base url not normalized: %q", cfg.BaseURL)
	}
	for _, bad := range []loadConfig{
		{Workers: 1, Rate: 1},
		{BaseURL: "http://x", Rate: 1},
		{BaseURL: "http://x", Workers: 1},
	} {
		if err := bad.validate(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}
