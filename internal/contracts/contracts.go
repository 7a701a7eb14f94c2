package contracts

import "time"

// Todo is the persisted record and the JSON shape returned by the API.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	EventTodoCreated = "todo.created"
	EventTodoUpdated = "todo.updated"
	EventTodoDeleted = "todo.deleted"
)

// TodoEvent is published by the todo service after a mutation has been saved.
type TodoEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	TodoID     string    `json:"todo_id"`
	Todo       Todo      `json:"todo"`
	OccurredAt time.Time `json:"occurred_at"`
	ShardID    int       `json:"shard_id"`
}
