package config

const (
	EnvStorageBackend    = "STORAGE_BACKEND"
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout   = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL   = "IDEMPOTENCY_TTL"
	EnvIdempotencyStore = "IDEMPOTENCY_STORE"
	EnvRedisURL         = "REDIS_URL"
	EnvMaxRequestSize   = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvConfirmationTokenTTL  = "CONFIRMATION_TOKEN_TTL"
	EnvApprovalTokenTTL      = "APPROVAL_TOKEN_TTL"
	EnvTokenSecret           = "TOKEN_SECRET"
	EnvParticipantHashSecret = "PARTICIPANT_HASH_SECRET"

	EnvLockTTL         = "BOOKING_LOCK_TTL"
	EnvLockWaitTimeout = "BOOKING_LOCK_WAIT_TIMEOUT"
	EnvSweepInterval   = "SWEEP_INTERVAL"
	EnvMaxSlots        = "MAX_SLOTS_PER_QUERY"

	EnvKafkaEnabled       = "KAFKA_ENABLED"
	EnvKafkaBrokers       = "KAFKA_BROKERS"
	EnvKafkaEventsTopic   = "KAFKA_EVENTS_TOPIC"
	EnvKafkaCalendarTopic = "KAFKA_CALENDAR_TOPIC"
	EnvKafkaGroupID       = "KAFKA_GROUP_ID"
	EnvFeedFetchTimeout   = "FEED_FETCH_TIMEOUT"
)
