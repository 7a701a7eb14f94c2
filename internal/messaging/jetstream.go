package messaging

import (
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	EventsStream  = "TODO_EVENTS"
	EventsSubject = "app.event.>"

	// Change events are notifications, not history.
	eventsMaxAge = 7 * 24 * time.Hour
)

// StreamManager is the subset of nats.JetStreamContext used to bootstrap streams.
type StreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// EnsureStreams creates the todo event stream when it does not exist yet.
func EnsureStreams(js StreamManager) error {
	_, err := js.StreamInfo(EventsStream)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(EventsStreamConfig())
	return err
}

func EventsStreamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      EventsStream,
		Subjects:  []string{EventsSubject},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    eventsMaxAge,
		Replicas:  1,
	}
}
