package todos

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/todo-1m/todolist/internal/platform/metrics"
)

const (
	msgCreated = "Todo created successfully"
	msgUpdated = "Todo updated successfully"
	msgDeleted = "Todo deleted successfully"

	msgTitleRequired = "Title is required"
	msgNotFound      = "Todo not found"

	msgListFailed   = "Failed to fetch todos"
	msgCreateFailed = "Failed to create todo"
	msgUpdateFailed = "Failed to update todo"
	msgDeleteFailed = "Failed to delete todo"
)

var requestsTotal = metrics.NewCounterVec(metrics.Opts{
	Name: "todo_requests_total",
	Help: "Todo API requests by operation and response status.",
}, []string{"operation", "status"})

func init() {
	metrics.Default.MustRegister(requestsTotal)
}

// Envelope wraps every todo API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	Service       *Service
	Logger        *log.Logger
	AllowedOrigin string
}

func NewHandler(service *Service, logger *log.Logger, allowedOrigin string) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		Service:       service,
		Logger:        logger,
		AllowedOrigin: allowedOrigin,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(h.corsMiddleware)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/todos", h.todoRoutes)
	r.Route("/api/todos", h.todoRoutes)
	return r
}

func (h *Handler) todoRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	todos := h.Service.List(r.Context())
	count := len(todos)
	h.writeJSON(w, "list", http.StatusOK, Envelope{
		Success: true,
		Data:    todos,
		Count:   &count,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, "create", err, msgCreateFailed)
		return
	}
	todo, err := h.Service.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create", err, msgCreateFailed)
		return
	}
	h.writeJSON(w, "create", http.StatusCreated, Envelope{
		Success: true,
		Data:    todo,
		Message: msgCreated,
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateTodoRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeServiceError(w, "update", err, msgUpdateFailed)
		return
	}
	todo, err := h.Service.Update(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, "update", err, msgUpdateFailed)
		return
	}
	h.writeJSON(w, "update", http.StatusOK, Envelope{
		Success: true,
		Data:    todo,
		Message: msgUpdated,
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	todo, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "delete", err, msgDeleteFailed)
		return
	}
	h.writeJSON(w, "delete", http.StatusOK, Envelope{
		Success: true,
		Data:    todo,
		Message: msgDeleted,
	})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// writeServiceError maps service errors to statuses. Anything unexpected is
// logged and answered with the operation's generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, fallback string) {
	switch {
	case errors.Is(err, ErrTitleRequired):
		h.writeError(w, op, http.StatusBadRequest, msgTitleRequired)
	case errors.Is(err, ErrInvalidCompleted):
		h.writeError(w, op, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTodoNotFound):
		h.writeError(w, op, http.StatusNotFound, msgNotFound)
	default:
		h.Logger.Error("todo request failed", "operation", op, "err", err)
		h.writeError(w, op, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, op string, status int, payload Envelope) {
	requestsTotal.WithLabelValues(op, fmt.Sprint(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, status int, msg string) {
	h.writeJSON(w, op, status, Envelope{Success: false, Error: msg})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin, Access-Control-Request-Headers")
		w.Header().Set("Access-Control-Allow-Origin", h.allowedOriginForRequest(r.Header.Get("Origin")))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		requestHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers"))
		if requestHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", requestHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) allowedOriginForRequest(requestOrigin string) string {
	allowed := strings.TrimSpace(h.AllowedOrigin)
	if allowed == "" || allowed == "*" {
		return "*"
	}

	origin := strings.TrimSpace(requestOrigin)
	if origin == "" || origin == allowed {
		return allowed
	}
	if isEquivalentLoopbackOrigin(origin, allowed) {
		return origin
	}
	return allowed
}

// isEquivalentLoopbackOrigin treats localhost, 127.0.0.1 and ::1 as the same
// host when scheme and port match.
func isEquivalentLoopbackOrigin(originA, originB string) bool {
	a, err := url.Parse(originA)
	if err != nil {
		return false
	}
	b, err := url.Parse(originB)
	if err != nil {
		return false
	}
	if !isLoopbackHost(a.Hostname()) || !isLoopbackHost(b.Hostname()) {
		return false
	}
	return a.Port() == b.Port() && strings.EqualFold(a.Scheme, b.Scheme)
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
