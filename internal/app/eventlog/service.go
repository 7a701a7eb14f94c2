package eventlog

import (
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/todo-1m/todolist/internal/contracts"
)

var ErrInvalidEventPayload = errors.New("invalid event payload")
var ErrUnsupportedEventType = errors.New("unsupported event type")

// Service writes every todo change event it receives to the logger.
type Service struct {
	Logger *log.Logger
}

func NewService(logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{Logger: logger}
}

func (s *Service) Handle(payload []byte, streamSeq uint64) (contracts.TodoEvent, error) {
	var event contracts.TodoEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return contracts.TodoEvent{}, ErrInvalidEventPayload
	}
	switch event.EventType {
	case contracts.EventTodoCreated, contracts.EventTodoUpdated, contracts.EventTodoDeleted:
	default:
		return event, ErrUnsupportedEventType
	}

	s.Logger.Info(event.EventType,
		"seq", streamSeq,
		"event_id", event.EventID,
		"id", event.TodoID,
		"title", event.Todo.Title,
		"completed", event.Todo.Completed,
		"occurred_at", event.OccurredAt,
	)
	return event, nil
}
