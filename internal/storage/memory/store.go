package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/todo-1m/todolist/internal/contracts"
)

// Store holds the record set in process memory. Records are copied on the
// way in and out.
type Store struct {
	mu    sync.Mutex
	todos []contracts.Todo

	// LoadErr and SaveErr, when set, are returned instead of touching data.
	LoadErr error
	SaveErr error
}

func New(seed ...contracts.Todo) *Store {
	return &Store{todos: slices.Clone(seed)}
}

func (s *Store) LoadAll(_ context.Context) ([]contracts.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	out := slices.Clone(s.todos)
	if out == nil {
		out = []contracts.Todo{}
	}
	return out, nil
}

func (s *Store) SaveAll(_ context.Context, todos []contracts.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.todos = slices.Clone(todos)
	return nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

// Snapshot returns a copy of the stored records without going through LoadErr.
func (s *Store) Snapshot() []contracts.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.todos)
}
