package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/todo-1m/todolist/internal/platform/metrics"
)

var (
	requestsTotal = metrics.NewCounterVec(metrics.Opts{
		Name: "todo_loadgen_requests_total",
		Help: "HTTP requests sent by the load generator.",
	}, []string{"action", "status", "outcome"})

	activeWorkers = metrics.NewGauge(metrics.Opts{
		Name: "todo_loadgen_active_workers",
		Help: "Workers currently sending actions.",
	})
)

func init() {
	metrics.Default.MustRegister(requestsTotal, activeWorkers)
}

type loadConfig struct {
	BaseURL        string
	Workers        int
	Duration       time.Duration
	Rate           float64
	RequestTimeout time.Duration
	StartupWait    time.Duration
	MetricsAddr    string
}

func (c *loadConfig) validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	switch {
	case c.BaseURL == "":
		return errors.New("base-url is required")
	case c.Workers <= 0:
		return errors.New("workers must be > 0")
	case c.Rate <= 0:
		return errors.New("rate must be > 0")
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type runner struct {
	cfg    loadConfig
	client *http.Client
	logger *log.Logger

	success  atomic.Int64
	failures atomic.Int64
	workers  atomic.Int64

	// ids of todos this run created and has not yet deleted. Other workers
	// may delete them first, so a 404 on update or delete is expected.
	mu  sync.Mutex
	ids []string
}

func newRunner(cfg loadConfig, logger *log.Logger) *runner {
	return &runner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

func (r *runner) run(ctx context.Context) error {
	if r.cfg.MetricsAddr != "" {
		go r.serveMetrics(ctx)
	}
	if err := r.waitForReady(ctx); err != nil {
		return fmt.Errorf("todo-api not ready: %w", err)
	}

	// The duration covers load only, not the readiness wait.
	if r.cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Duration)
		defer cancel()
	}
	r.logger.Info("load started", "workers", r.cfg.Workers, "rate", r.cfg.Rate, "duration", r.cfg.Duration)

	var wg sync.WaitGroup
	for i := range r.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runWorker(ctx, i)
		}()
	}
	wg.Wait()

	r.logger.Info("load complete", "success", r.success.Load(), "failures", r.failures.Load())
	return nil
}

func (r *runner) waitForReady(ctx context.Context) error {
	deadline := time.Now().Add(r.cfg.StartupWait)
	var lastErr error
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/readyz", nil)
		if err != nil {
			return err
		}
		resp, err := r.client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("status=%d", resp.StatusCode)
		}
		lastErr = err
		r.logger.Debug("waiting for todo-api", "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout")
	}
	return lastErr
}

func (r *runner) runWorker(ctx context.Context, index int) {
	activeWorkers.Set(float64(r.workers.Add(1)))
	defer func() { activeWorkers.Set(float64(r.workers.Add(-1))) }()

	interval := max(time.Duration(float64(time.Second)/r.cfg.Rate), 10*time.Millisecond)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(index)*7))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runAction(ctx, rng)
		}
	}
}

func (r *runner) runAction(ctx context.Context, rng *rand.Rand) {
	id, hasID := r.randomID(rng)
	choice := rng.Float64()
	switch {
	case choice < 0.20:
		r.list(ctx)
	case !hasID || choice < 0.60:
		r.create(ctx, rng)
	case choice < 0.90:
		r.update(ctx, rng, id)
	default:
		r.delete(ctx, id)
	}
}

func (r *runner) list(ctx context.Context) {
	_, _ = r.request(ctx, "list", http.MethodGet, "/todos", nil, http.StatusOK)
}

func (r *runner) create(ctx context.Context, rng *rand.Rand) {
	env, err := r.request(ctx, "create", http.MethodPost, "/todos", map[string]string{
		"title":       fmt.Sprintf("Load todo %d", rng.Intn(1_000_000)),
		"description": "generated by todo-load",
	}, http.StatusCreated)
	if err != nil {
		return
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &created); err == nil && created.ID != "" {
		r.addID(created.ID)
	}
}

func (r *runner) update(ctx context.Context, rng *rand.Rand, id string) {
	body := map[string]any{"completed": rng.Intn(2) == 1}
	if rng.Intn(2) == 0 {
		body["title"] = fmt.Sprintf("Updated load todo %d", rng.Intn(1_000_000))
	}
	_, _ = r.request(ctx, "update", http.MethodPut, "/todos/"+id, body, http.StatusOK, http.StatusNotFound)
}

func (r *runner) delete(ctx context.Context, id string) {
	if _, err := r.request(ctx, "delete", http.MethodDelete, "/todos/"+id, nil, http.StatusOK, http.StatusNotFound); err != nil {
		return
	}
	r.removeID(id)
}

// request sends one call and records its outcome. Any status in expected
// counts as success.
func (r *runner) request(ctx context.Context, action, method, path string, payload any, expected ...int) (envelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return envelope{}, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return envelope{}, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			r.record(action, "0", false)
			r.logger.Warn("request failed", "action", action, "err", err)
		}
		return envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if decodeErr != nil && ctx.Err() != nil {
		return envelope{}, ctx.Err()
	}
	status := strconv.Itoa(resp.StatusCode)
	ok := slices.Contains(expected, resp.StatusCode) && decodeErr == nil
	r.record(action, status, ok)
	if !ok {
		err := fmt.Errorf("%s %s: status=%d error=%q", method, path, resp.StatusCode, env.Error)
		r.logger.Warn("unexpected response", "action", action, "err", err)
		return env, err
	}
	return env, nil
}

func (r *runner) record(action, status string, ok bool) {
	outcome := "success"
	if ok {
		r.success.Add(1)
	} else {
		outcome = "error"
		r.failures.Add(1)
	}
	requestsTotal.WithLabelValues(action, status, outcome).Inc()
}

func (r *runner) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default.Handler())
	server := &http.Server{
		Addr:              r.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	r.logger.Info("metrics endpoint listening", "addr", r.cfg.MetricsAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.logger.Error("metrics server failed", "err", err)
	}
}

func (r *runner) addID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *runner) randomID(rng *rand.Rand) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) == 0 {
		return "", false
	}
	return r.ids[rng.Intn(len(r.ids))], true
}

func (r *runner) removeID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.ids {
		if existing != id {
			continue
		}
		r.ids[i] = r.ids[len(r.ids)-1]
		r.ids = r.ids[:len(r.ids)-1]
		return
	}
}
