package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"localhost:9092"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConsumerStartOffset != DefaultConsumerStartOffset || cfg.ProducerCompression != "snappy" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load(nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"At least one Kafka broker", "ProducerCompression", "ProducerRequireAcks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}
