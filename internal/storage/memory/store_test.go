package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todo-1m/todolist/internal/contracts"
)

func TestStoreCopiesOnLoadAndSave(t *testing.T) {
	ctx := context.Background()
	seed := []contracts.Todo{{ID: "1", Title: "A"}}
	store := New(seed...)

	seed[0].Title = "mutated seed"
	got, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", got[0].Title)

	got[0].Title = "mutated load"
	assert.Equal(t, "A", store.Snapshot()[0].Title)

	next := []contracts.Todo{{ID: "2", Title: "B"}}
	require.NoError(t, store.SaveAll(ctx, next))
	next[0].Title = "mutated save"
	assert.Equal(t, "B", store.Snapshot()[0].Title)
}

func TestStoreEmptyLoadIsNonNil(t *testing.T) {
	got, err := New().LoadAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStoreInjectedErrors(t *testing.T) {
	ctx := context.Background()
	store := New(contracts.Todo{ID: "1"})
	store.LoadErr = errors.New("boom")
	store.SaveErr = errors.New("disk full")

	_, err := store.LoadAll(ctx)
	assert.EqualError(t, err, "boom")
	assert.EqualError(t, store.SaveAll(ctx, nil), "disk full")
	assert.Len(t, store.Snapshot(), 1)
}
