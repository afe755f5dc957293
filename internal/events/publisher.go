package events

import (
	"context"
	"sync"

	"rendezvous/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Notify publishes after a transition has committed. Failures are logged and swallowed: the
// transition stands whether or not anyone hears about it.
func Notify(ctx context.Context, pub Publisher, log *logger.Logger, event Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Error("Failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"aggregate_id", event.AggregateID,
			"error", err,
		)
	}
}

type nopPublisher struct{}

func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []Type {
	events := r.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
