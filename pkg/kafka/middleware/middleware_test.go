package kafka_middleware

import (
	"context"
	"errors"
	"testing"

	"rendezvous/pkg/kafka"
	"rendezvous/pkg/logger"
)

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics()
	publish := m.MetricsProducerMiddleware()
	consume := m.MetricsConsumerMiddleware()
	ctx := context.Background()

	_ = publish(ctx, kafka.Message{}, func(context.Context, kafka.Message) error { return nil })
	_ = publish(ctx, kafka.Message{}, func(context.Context, kafka.Message) error { return errors.New("x") })
	_ = consume(ctx, kafka.Message{}, func(context.Context, kafka.Message) error { return nil })

	if m.MessagesPublished.Load() != 1 || m.MessagesPublishedFailed.Load() != 1 {
		t.Errorf("publish counters = %d/%d", m.MessagesPublished.Load(), m.MessagesPublishedFailed.Load())
	}
	if m.MessagesConsumed.Load() != 1 || m.MessagesConsumedFailed.Load() != 0 {
		t.Errorf("consume counters = %d/%d", m.MessagesConsumed.Load(), m.MessagesConsumedFailed.Load())
	}
	m.LogSnapshot(logger.Nop())
}

func TestLoggingMiddleware_PassesErrorThrough(t *testing.T) {
	want := errors.New("boom")
	mw := LoggingConsumerMiddleware(logger.Nop())
	err := mw(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}

	pmw := LoggingProducerMiddleware(logger.Nop())
	if err := pmw(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return nil }); err != nil {
		t.Errorf("error = %v", err)
	}
}
