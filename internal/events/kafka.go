package events

import (
	"context"
	"fmt"

	"rendezvous/pkg/kafka"
	kafka_config "rendezvous/pkg/kafka/config"
	middleware "rendezvous/pkg/kafka/middleware"
	"rendezvous/pkg/logger"
)

const source = "rendezvous-scheduler"

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer messagePublisher
	metrics  *middleware.Metrics
	log      *logger.Logger
}

func NewKafkaPublisher(cfg *kafka_config.Config, topic string, log *logger.Logger) (*KafkaPublisher, error) {
	producer, err := kafka.NewProducer(cfg, topic, topic+".dlq", log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}

	metrics := middleware.NewMetrics()
	producer.Use(middleware.LoggingProducerMiddleware(log))
	producer.Use(metrics.MetricsProducerMiddleware())

	log.Info("Kafka event publisher initialized", "topic", topic)
	return &KafkaPublisher{producer: producer, metrics: metrics, log: log}, nil
}

// Events are keyed by owner so one host's notifications stay ordered on a single partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := kafka.NewMessage().
		WithKey(event.OwnerID).
		WithValue(event).
		WithEventID(event.ID).
		WithEventType(string(event.Type)).
		WithCorrelationID(event.AggregateID).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		WithTimestamp(event.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build event message: %w", err)
	}
	return p.producer.Publish(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	if p.metrics != nil {
		p.metrics.LogSnapshot(p.log)
	}
	return p.producer.Close()
}
