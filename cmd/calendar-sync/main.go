package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	busyrepo "rendezvous/internal/busy/repository"
	busyservice "rendezvous/internal/busy/service"
	"rendezvous/pkg/client"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	"rendezvous/pkg/kafka"
	kafka_config "rendezvous/pkg/kafka/config"
	middleware "rendezvous/pkg/kafka/middleware"
)

const ServiceName = "calendar-sync"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Calendar Sync consumer")

	if !cfg.UsesMongo() {
		cfg.Log.Fatal("Calendar sync requires the mongo storage backend", "storage_backend", cfg.StorageBackend)
	}
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	busySvc := busyservice.NewBusyService(
		busyrepo.NewMongoBusyRepository(cfg),
		client.NewFeedClient(cfg.FeedFetchTimeout),
		clock.System(),
		cfg,
	)

	kcfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.KafkaCalendarTopic,
		cfg.KafkaGroupID,
		cfg.KafkaCalendarTopic+".dlq",
		busyservice.NewMessageHandler(busySvc, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create calendar consumer", "error", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Failed to close calendar consumer", "error", err)
		}
	}()

	metrics := middleware.NewMetrics()
	consumer.Use(middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.MetricsConsumerMiddleware())
	defer metrics.LogSnapshot(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Calendar consumer stopped", "error", err)
		return
	}
	cfg.Log.Info("Calendar Sync consumer stopped gracefully")
}
