package messaging

import (
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type fakeStreams struct {
	infoErr error
	added   []*nats.StreamConfig
	addErr  error
}

func (f *fakeStreams) StreamInfo(_ string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return &nats.StreamInfo{}, nil
}

func (f *fakeStreams) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	f.added = append(f.added, cfg)
	return &nats.StreamInfo{Config: *cfg}, f.addErr
}

func TestEnsureStreams_CreatesMissingStream(t *testing.T) {
	js := &fakeStreams{infoErr: nats.ErrStreamNotFound}
	if err := EnsureStreams(js); err != nil {
		t.Fatalf("EnsureStreams returned error: %v", err)
	}
	if len(js.added) != 1 || js.added[0].Name != EventsStream || js.added[0].Subjects[0] != EventsSubject {
		t.Fatalf("unexpected streams added: %+v", js.added)
	}
}

func TestEnsureStreams_ExistingStreamUntouched(t *testing.T) {
	js := &fakeStreams{}
	if err := EnsureStreams(js); err != nil {
		t.Fatalf("EnsureStreams returned error: %v", err)
	}
	if len(js.added) != 0 {
		t.Fatalf("expected no AddStream call, got %d", len(js.added))
	}
}

func TestEnsureStreams_PropagatesLookupError(t *testing.T) {
	boom := errors.New("jetstream unavailable")
	js := &fakeStreams{infoErr: boom}
	if err := EnsureStreams(js); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
