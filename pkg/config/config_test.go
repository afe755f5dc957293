package config

import (
	"strings"
	"testing"
	"time"

	"rendezvous/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		StorageBackend:        StorageMemory,
		Port:                  "8080",
		MongoConnTimeout:      time.Second,
		RateLimitRequests:     10,
		RateLimitWindow:       time.Minute,
		RequestTimeout:        time.Second,
		IdempotencyTTL:        time.Hour,
		IdempotencyStore:      IdempotencyMemory,
		MaxRequestSize:        1024,
		ReadTimeout:           time.Second,
		WriteTimeout:          time.Second,
		IdleTimeout:           time.Second,
		ShutdownTimeout:       time.Second,
		ConfirmationTokenTTL:  15 * time.Minute,
		ApprovalTokenTTL:      48 * time.Hour,
		TokenSecret:           "lfQVRuulcL2iOhOJ2r8BYTweoSKwVAJnIF9U+AL+M60=",
		ParticipantHashSecret: "0123456789abcdef",
		LockTTL:               10 * time.Second,
		LockWaitTimeout:       5 * time.Second,
		SweepInterval:         time.Minute,
		MaxSlots:              100,
		Log:                   logger.Nop(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid memory backend", mutate: func(*Config) {}},
		{
			name: "mongo backend needs uri",
			mutate: func(c *Config) {
				c.StorageBackend = StorageMongo
				c.MongoURI = "http://nope"
				c.MongoDatabaseName = "db"
			},
			wantErr: "MongoURI must start with",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.StorageBackend = "postgres" },
			wantErr: "StorageBackend must be",
		},
		{
			name:    "short token key",
			mutate:  func(c *Config) { c.TokenSecret = "c2hvcnQ=" },
			wantErr: "TokenSecret must be a base64 encoded",
		},
		{
			name:    "missing hash secret",
			mutate:  func(c *Config) { c.ParticipantHashSecret = "" },
			wantErr: "ParticipantHashSecret",
		},
		{
			name:    "non positive ttl",
			mutate:  func(c *Config) { c.ConfirmationTokenTTL = 0 },
			wantErr: "ConfirmationTokenTTL must be positive",
		},
		{
			name: "kafka without brokers",
			mutate: func(c *Config) {
				c.KafkaEnabled = true
				c.KafkaEventsTopic = "events"
			},
			wantErr: "KafkaBrokers cannot be empty",
		},
		{
			name: "redis idempotency needs redis url",
			mutate: func(c *Config) {
				c.IdempotencyStore = IdempotencyRedis
				c.RedisURL = "localhost:6379"
			},
			wantErr: "RedisURL must start with",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NumbersErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.SweepInterval = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered errors, got %q", err.Error())
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:s3cret@db:27017/app")
	if strings.Contains(got, "s3cret") || !strings.Contains(got, "***:***@") {
		t.Errorf("redactMongoURI() = %q", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " k1:9092, ,k2:9092 ")
	got := getEnvList(EnvKafkaBrokers, DefaultKafkaBrokers)
	if len(got) != 2 || got[0] != "k1:9092" || got[1] != "k2:9092" {
		t.Errorf("getEnvList() = %v", got)
	}
}

func TestNormalizePaginationLimit(t *testing.T) {
	if got := NormalizePaginationLimit(0); got != 10 {
		t.Errorf("NormalizePaginationLimit(0) = %d", got)
	}
	if got := NormalizePaginationLimit(1000); got != DefaultPaginationLimit {
		t.Errorf("NormalizePaginationLimit(1000) = %d", got)
	}
	if got := NormalizeOffset(-5); got != 0 {
		t.Errorf("NormalizeOffset(-5) = %d", got)
	}
}
