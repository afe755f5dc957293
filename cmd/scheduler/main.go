package main

import (
	availabilityhandler "rendezvous/internal/availability/handler"
	availabilityrepo "rendezvous/internal/availability/repository"
	availabilityservice "rendezvous/internal/availability/service"
	availabilityvalidator "rendezvous/internal/availability/validator"
	bookinghandler "rendezvous/internal/bookings/handler"
	bookingrepo "rendezvous/internal/bookings/repository"
	bookingservice "rendezvous/internal/bookings/service"
	bookingvalidator "rendezvous/internal/bookings/validator"
	busyhandler "rendezvous/internal/busy/handler"
	busyrepo "rendezvous/internal/busy/repository"
	busyservice "rendezvous/internal/busy/service"
	"rendezvous/internal/events"
	pollhandler "rendezvous/internal/polls/handler"
	pollrepo "rendezvous/internal/polls/repository"
	pollservice "rendezvous/internal/polls/service"
	pollvalidator "rendezvous/internal/polls/validator"
	requesthandler "rendezvous/internal/requests/handler"
	requestrepo "rendezvous/internal/requests/repository"
	requestservice "rendezvous/internal/requests/service"
	requestvalidator "rendezvous/internal/requests/validator"
	"rendezvous/internal/sweeper"
	"rendezvous/pkg/app"
	"rendezvous/pkg/client"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	"rendezvous/pkg/contracts"
	kafka_config "rendezvous/pkg/kafka/config"
	"rendezvous/pkg/sealer"
)

const ServiceName = "scheduler"

type repositories struct {
	rules      availabilityrepo.RuleRepository
	eventTypes availabilityrepo.EventTypeRepository
	bookings   bookingrepo.BookingRepository
	locks      bookingrepo.BookingLockRepository
	busy       busyrepo.BusyRepository
	requests   requestrepo.RequestRepository
	polls      pollrepo.PollRepository
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Scheduler service")

	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	if cfg.IdempotencyStore == config.IdempotencyRedis {
		cfg.SetRedis()
	}

	publisher := initPublisher(cfg)
	repos := initRepositories(cfg)
	clk := clock.System()

	busySvc := busyservice.NewBusyService(repos.busy, client.NewFeedClient(cfg.FeedFetchTimeout), clk, cfg)
	availabilitySvc := availabilityservice.NewAvailabilityService(
		repos.rules,
		repos.eventTypes,
		repos.bookings,
		busySvc,
		availabilityvalidator.NewAvailabilityValidator(cfg.Log),
		clk,
		cfg,
	)

	bookingValidator := bookingvalidator.NewBookingValidator(cfg.Log)
	bookingSvc := bookingservice.NewBookingService(repos.bookings, bookingValidator, publisher, clk, cfg)
	committer := bookingservice.NewCommitter(
		repos.bookings,
		busySvc,
		bookingservice.NewOwnerLocker(repos.locks, clk, cfg),
		bookingValidator,
		cfg,
	)

	key, err := cfg.TokenKey()
	if err != nil {
		cfg.Log.Fatal("Invalid token secret", "error", err)
	}
	tokens, err := sealer.New(key)
	if err != nil {
		cfg.Log.Fatal("Failed to create token sealer", "error", err)
	}

	requestSvc := requestservice.NewRequestService(
		repos.requests,
		requestvalidator.NewRequestValidator(cfg.Log),
		availabilitySvc,
		repos.bookings,
		busySvc,
		committer,
		tokens,
		publisher,
		clk,
		cfg,
	)
	pollSvc := pollservice.NewPollService(
		repos.polls,
		pollvalidator.NewPollValidator(cfg.Log),
		committer,
		sealer.NewHasher(cfg.ParticipantHashSecret),
		publisher,
		clk,
		cfg,
	)
	cfg.Log.Info("Scheduler services initialized", "storage_backend", cfg.StorageBackend)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(contracts.Handlers{
		availabilityhandler.NewAvailabilityHandler(availabilitySvc, cfg.Log),
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log),
		busyhandler.NewBusyHandler(busySvc, cfg.Log),
		requesthandler.NewRequestHandler(requestSvc, cfg.Log),
		pollhandler.NewPollHandler(pollSvc, cfg.Log),
	})
	serverApp.AddWorker("expiry-sweeper", sweeper.New(requestSvc, pollSvc, cfg.SweepInterval, cfg.Log).Run)
	serverApp.OnShutdown(publisher.Close)
	serverApp.OnShutdown(func() error {
		cfg.GracefulShutdown()
		return nil
	})
	serverApp.Run()
}

func initRepositories(cfg *config.Config) repositories {
	if !cfg.UsesMongo() {
		cfg.Log.Warn("Using in-memory storage; data is lost on restart")
		return repositories{
			rules:      availabilityrepo.NewMemoryRuleRepository(),
			eventTypes: availabilityrepo.NewMemoryEventTypeRepository(),
			bookings:   bookingrepo.NewMemoryBookingRepository(),
			locks:      bookingrepo.NewMemoryBookingLockRepository(),
			busy:       busyrepo.NewMemoryBusyRepository(),
			requests:   requestrepo.NewMemoryRequestRepository(),
			polls:      pollrepo.NewMemoryPollRepository(),
		}
	}

	return repositories{
		rules:      availabilityrepo.NewMongoRuleRepository(cfg),
		eventTypes: availabilityrepo.NewMongoEventTypeRepository(cfg),
		bookings:   bookingrepo.NewMongoBookingRepository(cfg),
		locks:      bookingrepo.NewMongoBookingLockRepository(cfg),
		busy:       busyrepo.NewMongoBusyRepository(cfg),
		requests:   requestrepo.NewMongoRequestRepository(cfg),
		polls:      pollrepo.NewMongoPollRepository(cfg),
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled; scheduling events are not published")
		return events.NewNopPublisher()
	}

	kcfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	publisher, err := events.NewKafkaPublisher(kcfg, cfg.KafkaEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}
	return publisher
}
