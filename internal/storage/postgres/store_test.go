package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todo-1m/todolist/internal/contracts"
	"github.com/todo-1m/todolist/internal/platform/dbpool"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TODO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TODO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := dbpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := New(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.SaveAll(ctx, nil))
	return store
}

func TestSaveAllThenLoadAllKeepsOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	todos := []contracts.Todo{
		{ID: "10", Title: "ten", CreatedAt: created, UpdatedAt: created},
		{ID: "2", Title: "two", Description: "d", Completed: true, CreatedAt: created, UpdatedAt: created.Add(time.Minute)},
	}

	require.NoError(t, store.SaveAll(ctx, todos))
	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, todos, got)

	require.NoError(t, store.SaveAll(ctx, todos[1:]))
	got, err = store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestPing(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
