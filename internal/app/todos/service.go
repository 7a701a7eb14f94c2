package todos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nuid"
	"github.com/todo-1m/todolist/internal/contracts"
	"github.com/todo-1m/todolist/internal/platform/metrics"
	"github.com/todo-1m/todolist/internal/sharding"
)

var ErrTitleRequired = errors.New("title is required")
var ErrTodoNotFound = errors.New("todo not found")
var ErrInvalidCompleted = errors.New("completed must be a boolean")
var ErrIDSpaceExhausted = errors.New("no numeric id left above the current maximum")

// ErrMalformedPayload marks request bodies that cannot be decoded into the
// expected shape. It is reported as an internal error, not a validation error.
var ErrMalformedPayload = errors.New("malformed payload")

// Store loads and commits the entire record set. Implementations keep no
// state between calls.
type Store interface {
	LoadAll(ctx context.Context) ([]contracts.Todo, error)
	SaveAll(ctx context.Context, todos []contracts.Todo) error
}

type PublishFunc func(subject string, payload []byte) error

var storedTodos = metrics.NewGauge(metrics.Opts{
	Name: "todos_stored",
	Help: "Number of todos in the store after the last load or save.",
})

func init() {
	metrics.Default.MustRegister(storedTodos)
}

type Service struct {
	Store   Store
	Publish PublishFunc
	Logger  *log.Logger
	Now     func() time.Time
	NewID   func() string

	// mu serializes load-mutate-save cycles within this process.
	mu sync.Mutex
}

type CreateTodoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// UpdateTodoRequest carries only the fields the client sent. Completed is
// kept raw so that string and numeric flags can be coerced.
type UpdateTodoRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Completed   json.RawMessage `json:"completed"`
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		Store:  store,
		Logger: logger,
		Now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		NewID:  nuid.Next,
	}
}

// List returns the whole record set. A store that cannot be read is
// reported as empty.
func (s *Service) List(ctx context.Context) []contracts.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.Store.LoadAll(ctx)
	if err != nil {
		s.Logger.Warn("reading todos failed, serving empty list", "err", err)
		return []contracts.Todo{}
	}
	if todos == nil {
		todos = []contracts.Todo{}
	}
	storedTodos.Set(float64(len(todos)))
	return todos
}

func (s *Service) Create(ctx context.Context, req CreateTodoRequest) (contracts.Todo, error) {
	todo, err := s.create(ctx, req)
	if err != nil {
		return contracts.Todo{}, err
	}
	s.publish(contracts.EventTodoCreated, todo)
	return todo, nil
}

func (s *Service) create(ctx context.Context, req CreateTodoRequest) (contracts.Todo, error) {
	title := ""
	if req.Title != nil {
		title = strings.TrimSpace(*req.Title)
	}
	if title == "" {
		return contracts.Todo{}, ErrTitleRequired
	}
	description := ""
	if req.Description != nil {
		description = strings.TrimSpace(*req.Description)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return contracts.Todo{}, err
	}

	id, err := nextID(todos)
	if err != nil {
		return contracts.Todo{}, err
	}
	now := s.Now()
	todo := contracts.Todo{
		ID:          id,
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	todos = append(todos, todo)
	if err := s.save(ctx, todos); err != nil {
		return contracts.Todo{}, err
	}
	return todo, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateTodoRequest) (contracts.Todo, error) {
	todo, err := s.update(ctx, id, req)
	if err != nil {
		return contracts.Todo{}, err
	}
	s.publish(contracts.EventTodoUpdated, todo)
	return todo, nil
}

func (s *Service) update(ctx context.Context, id string, req UpdateTodoRequest) (contracts.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return contracts.Todo{}, err
	}
	idx := indexOf(todos, id)
	if idx == -1 {
		return contracts.Todo{}, ErrTodoNotFound
	}

	todo := todos[idx]
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return contracts.Todo{}, ErrTitleRequired
		}
		todo.Title = title
	}
	if req.Description != nil {
		todo.Description = strings.TrimSpace(*req.Description)
	}
	completed, present, err := coerceCompleted(req.Completed)
	if err != nil {
		return contracts.Todo{}, err
	}
	if present {
		todo.Completed = completed
	}

	todo.UpdatedAt = s.Now()
	if todo.UpdatedAt.Before(todo.CreatedAt) {
		todo.UpdatedAt = todo.CreatedAt
	}
	todos[idx] = todo
	if err := s.save(ctx, todos); err != nil {
		return contracts.Todo{}, err
	}
	return todo, nil
}

// Delete removes the record and returns it as it was before removal.
func (s *Service) Delete(ctx context.Context, id string) (contracts.Todo, error) {
	removed, err := s.remove(ctx, id)
	if err != nil {
		return contracts.Todo{}, err
	}
	s.publish(contracts.EventTodoDeleted, removed)
	return removed, nil
}

func (s *Service) remove(ctx context.Context, id string) (contracts.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	todos, err := s.load(ctx)
	if err != nil {
		return contracts.Todo{}, err
	}
	idx := indexOf(todos, id)
	if idx == -1 {
		return contracts.Todo{}, ErrTodoNotFound
	}

	removed := todos[idx]
	todos = slices.Delete(todos, idx, idx+1)
	if err := s.save(ctx, todos); err != nil {
		return contracts.Todo{}, err
	}
	return removed, nil
}

func (s *Service) load(ctx context.Context) ([]contracts.Todo, error) {
	todos, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load todos: %w", err)
	}
	return todos, nil
}

func (s *Service) save(ctx context.Context, todos []contracts.Todo) error {
	if err := s.Store.SaveAll(ctx, todos); err != nil {
		return fmt.Errorf("save todos: %w", err)
	}
	storedTodos.Set(float64(len(todos)))
	return nil
}

// publish emits a change event. It runs after the lock is released, and the
// record is already committed, so a failed publish is only logged.
func (s *Service) publish(eventType string, todo contracts.Todo) {
	if s.Publish == nil {
		return
	}
	event := contracts.TodoEvent{
		EventID:    s.NewID(),
		EventType:  eventType,
		TodoID:     todo.ID,
		Todo:       todo,
		OccurredAt: s.Now(),
		ShardID:    sharding.GetShardID(todo.ID),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("encoding todo event failed", "event", eventType, "id", todo.ID, "err", err)
		return
	}
	if err := s.Publish(sharding.EventSubject("todo", todo.ID), payload); err != nil {
		s.Logger.Error("publishing todo event failed", "event", eventType, "id", todo.ID, "err", err)
	}
}

// nextID is one past the largest numeric id. Ids that are not integers are
// skipped.
func nextID(todos []contracts.Todo) (string, error) {
	var highest int64
	for _, t := range todos {
		n, err := strconv.ParseInt(strings.TrimSpace(t.ID), 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	if highest == math.MaxInt64 {
		return "", ErrIDSpaceExhausted
	}
	return strconv.FormatInt(highest+1, 10), nil
}

func indexOf(todos []contracts.Todo, id string) int {
	return slices.IndexFunc(todos, func(t contracts.Todo) bool {
		return t.ID == id
	})
}

// coerceCompleted accepts JSON booleans, boolean-like strings and numbers.
// An absent or null value reports present=false.
func coerceCompleted(raw json.RawMessage) (value bool, present bool, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return false, false, nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false, ErrMalformedPayload
	}
	switch typed := v.(type) {
	case bool:
		return typed, true, nil
	case float64:
		return typed != 0, true, nil
	case string:
		parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(typed)))
		if err != nil {
			return false, false, ErrInvalidCompleted
		}
		return parsed, true, nil
	default:
		return false, false, ErrInvalidCompleted
	}
}
