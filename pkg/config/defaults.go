package config

import "time"

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"

	IdempotencyMemory = "memory"
	IdempotencyRedis  = "redis"
)

const (
	DefaultStorageBackend    = StorageMongo
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "rendezvous"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout   = 30 * time.Second
	DefaultIdempotencyTTL   = 24 * time.Hour
	DefaultIdempotencyStore = IdempotencyMemory
	DefaultRedisURL         = "redis://localhost:6379/0"
	DefaultMaxRequestSize   = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultConfirmationTokenTTL = 15 * time.Minute
	DefaultApprovalTokenTTL     = 48 * time.Hour

	DefaultLockTTL         = 10 * time.Second
	DefaultLockWaitTimeout = 5 * time.Second
	DefaultSweepInterval   = 1 * time.Minute
	DefaultMaxSlots        = 500

	DefaultKafkaBrokers       = "localhost:9092"
	DefaultKafkaEventsTopic   = "rendezvous.scheduling-events"
	DefaultKafkaCalendarTopic = "rendezvous.calendar-busy"
	DefaultKafkaGroupID       = "rendezvous-calendar-sync"
	DefaultFeedFetchTimeout   = 15 * time.Second

	DefaultPaginationLimit = 100
)
