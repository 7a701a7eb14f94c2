// Package sqlite keeps the todo list as a single JSON document in a SQLite
// key/value table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/todo-1m/todolist/internal/contracts"
	_ "modernc.org/sqlite"
)

const todosKey = "todos"

const createKVSQL = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
)`

const selectValueSQL = `SELECT value FROM kv WHERE key = ?`

const upsertValueSQL = `
INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createKVSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) LoadAll(ctx context.Context) ([]contracts.Todo, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, selectValueSQL, todosKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []contracts.Todo{}, nil
		}
		return nil, fmt.Errorf("read todos: %w", err)
	}
	todos := []contracts.Todo{}
	if err := json.Unmarshal([]byte(raw), &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	return todos, nil
}

func (s *Store) SaveAll(ctx context.Context, todos []contracts.Todo) error {
	if todos == nil {
		todos = []contracts.Todo{}
	}
	b, err := json.Marshal(todos)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertValueSQL, todosKey, string(b)); err != nil {
		return fmt.Errorf("write todos: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
