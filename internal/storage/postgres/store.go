// Package postgres stores the todo list as rows in a single table. The
// whole set is still loaded and rewritten per call.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/todo-1m/todolist/internal/contracts"
)

const createTodoRecordsSQL = `
CREATE TABLE IF NOT EXISTS todo_records (
  id text PRIMARY KEY,
  title text NOT NULL,
  description text NOT NULL DEFAULT '',
  completed boolean NOT NULL DEFAULT false,
  created_at timestamptz NOT NULL,
  updated_at timestamptz NOT NULL,
  position integer NOT NULL
)`

const selectTodoRecordsSQL = `
SELECT id, title, description, completed, created_at, updated_at
FROM todo_records
ORDER BY position`

const deleteTodoRecordsSQL = `DELETE FROM todo_records`

var todoRecordColumns = []string{"id", "title", "description", "completed", "created_at", "updated_at", "position"}

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, createTodoRecordsSQL)
	return err
}

func (s *Store) LoadAll(ctx context.Context) ([]contracts.Todo, error) {
	rows, err := s.Pool.Query(ctx, selectTodoRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	result := []contracts.Todo{}
	for rows.Next() {
		var t contracts.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SaveAll replaces every row inside one transaction.
func (s *Store) SaveAll(ctx context.Context, todos []contracts.Todo) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteTodoRecordsSQL); err != nil {
		return fmt.Errorf("clear todos: %w", err)
	}
	if len(todos) > 0 {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"todo_records"}, todoRecordColumns,
			pgx.CopyFromSlice(len(todos), func(i int) ([]any, error) {
				t := todos[i]
				return []any{t.ID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt, i}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy todos: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}
