// Package jsonfile keeps the whole todo list in one human-readable JSON file.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/todo-1m/todolist/internal/contracts"
)

const DefaultPath = "data/todos.json"

type Store struct {
	Path string
}

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{Path: path}
}

// LoadAll returns an empty set when the file does not exist yet.
func (s *Store) LoadAll(ctx context.Context) ([]contracts.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []contracts.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	todos := []contracts.Todo{}
	if err := json.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, nil
}

// SaveAll replaces the file through a temp file and rename, so readers
// never see a half-written array.
func (s *Store) SaveAll(ctx context.Context, todos []contracts.Todo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if todos == nil {
		todos = []contracts.Todo{}
	}
	b, err := json.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".todos-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// Ping checks that the data directory exists or can be created.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}
