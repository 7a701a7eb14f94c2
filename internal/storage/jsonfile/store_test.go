package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todo-1m/todolist/internal/contracts"
)

func sampleTodos() []contracts.Todo {
	created := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return []contracts.Todo{
		{ID: "1", Title: "Test Todo 1", Description: "Test Description 1", CreatedAt: created, UpdatedAt: created},
		{ID: "2", Title: "Test Todo 2", Completed: true, CreatedAt: created, UpdatedAt: created.Add(time.Hour)},
	}
}

func TestLoadAll_MissingFileIsEmpty(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "nope", "todos.json"))

	todos, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestSaveAllThenLoadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "todos.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.SaveAll(ctx, sampleTodos()))

	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTodos(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestSaveAll_WritesIndentedArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	store := New(path)

	require.NoError(t, store.SaveAll(context.Background(), nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	require.NoError(t, store.SaveAll(context.Background(), sampleTodos()[:1]))
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  {\n    \"id\": \"1\",")
	assert.Contains(t, string(b), `"createdAt": "2024-01-15T10:00:00Z"`)
}

func TestLoadAll_ReadsMillisecondTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	raw := `[{"id":"1","title":"A","description":"","completed":false,` +
		`"createdAt":"2024-01-15T10:00:00.000Z","updatedAt":"2024-01-15T11:45:00.000Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	todos, err := New(path).LoadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 11, 45, 0, 0, time.UTC), todos[0].UpdatedAt)
}

func TestLoadAll_CorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todos.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).LoadAll(context.Background())
	assert.ErrorContains(t, err, "json unmarshal")
}

func TestSaveAll_UnwritableDirFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := New(filepath.Join(blocker, "todos.json")).SaveAll(context.Background(), sampleTodos())
	assert.Error(t, err)
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, New("").Path)
}
