// Package config wires environment configuration for the matching
// service. Priority: ENV > .env file > defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Addr string
}

type Kafka struct {
	Brokers         []string
	EventsTopic     string
	MarketDataTopic string
}

type Storage struct {
	DataDir string
	WALDir  string
	// SegmentSize caps one WAL segment before rotation.
	SegmentSize int64
}

type Engine struct {
	Pairs            []string
	SnapshotInterval time.Duration
	ExpiryInterval   time.Duration
	// Strict runs full book validation after every command. Slow;
	// meant for tests and shadow deployments.
	Strict bool
}

type Config struct {
	HTTP    HTTP
	Kafka   Kafka
	Storage Storage
	Engine  Engine
}

func Default() Config {
	return Config{
		HTTP: HTTP{Addr: ":8080"},
		Kafka: Kafka{
			Brokers:         []string{"localhost:9092"},
			EventsTopic:     "vela.events",
			MarketDataTopic: "vela.marketdata",
		},
		Storage: Storage{
			DataDir:     "data",
			WALDir:      "data/wal",
			SegmentSize: 4 * 1024 * 1024,
		},
		Engine: Engine{
			Pairs:            []string{"BTC-USD"},
			SnapshotInterval: 30 * time.Second,
			ExpiryInterval:   time.Second,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_EVENTS_TOPIC"); v != "" {
		cfg.Kafka.EventsTopic = v
	}
	if v := os.Getenv("KAFKA_MARKETDATA_TOPIC"); v != "" {
		cfg.Kafka.MarketDataTopic = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("WAL_DIR"); v != "" {
		cfg.Storage.WALDir = v
	}
	if v := os.Getenv("WAL_SEGMENT_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Storage.SegmentSize = n
		}
	}
	if v := os.Getenv("PAIRS"); v != "" {
		cfg.Engine.Pairs = strings.Split(v, ",")
	}
	if v := os.Getenv("SNAPSHOT_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Engine.SnapshotInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("EXPIRY_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Engine.ExpiryInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("ENGINE_STRICT"); v != "" {
		cfg.Engine.Strict = v == "true"
	}

	return cfg
}
