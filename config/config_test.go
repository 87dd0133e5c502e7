package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"BTC-USD"}, cfg.Engine.Pairs)
	assert.Positive(t, cfg.Storage.SegmentSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("PAIRS", "BTC-USD,ETH-USD")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SNAPSHOT_INTERVAL_MS", "1500")
	t.Setenv("ENGINE_STRICT", "true")

	cfg := LoadFromEnv("")
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, cfg.Engine.Pairs)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 1500*time.Millisecond, cfg.Engine.SnapshotInterval)
	assert.True(t, cfg.Engine.Strict)
}

func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv("SNAPSHOT_INTERVAL_MS", "not-a-number")
	t.Setenv("WAL_SEGMENT_SIZE", "-5")

	cfg := LoadFromEnv("")
	assert.Equal(t, Default().Engine.SnapshotInterval, cfg.Engine.SnapshotInterval)
	assert.Equal(t, Default().Storage.SegmentSize, cfg.Storage.SegmentSize)
}
