// Package config loads and validates engine configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, RPC, Assets, Paging, Scores, Snapshot, Redis, Postgres,
// Badger, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level engine configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	RPC      RPCConfig      `yaml:"rpc"`
	Assets   AssetsConfig   `yaml:"assets"`
	Paging   PagingConfig   `yaml:"paging"`
	Scores   ScoresConfig   `yaml:"scores"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Badger   BadgerConfig   `yaml:"badger"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               int           `yaml:"port"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"`
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout"`
	SlowRequest        time.Duration `yaml:"slowRequest"`
}

// RPCConfig holds the JSON-over-TCP bridge listener settings.
type RPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// AssetsConfig points at the pre-built binary tree blobs.
type AssetsConfig struct {
	DictionaryPath  string `yaml:"dictionaryPath"`
	AssociativePath string `yaml:"associativePath"`
}

// PagingConfig controls candidate pagination.
type PagingConfig struct {
	PageSize   int `yaml:"pageSize"`
	MaxPerNode int `yaml:"maxPerNode"`
}

// ScoresConfig controls the personalized score store.
type ScoresConfig struct {
	Capacity int `yaml:"capacity"`
}

// SnapshotConfig selects where score snapshots are persisted. Backend is one
// of "none", "redis", "postgres" or "badger".
type SnapshotConfig struct {
	Backend  string        `yaml:"backend"`
	Interval time.Duration `yaml:"interval"`
	Key      string        `yaml:"key"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// BadgerConfig holds the embedded snapshot store location.
type BadgerConfig struct {
	DataDir  string `yaml:"dataDir"`
	InMemory bool   `yaml:"inMemory"`
}

// KafkaConfig holds broker and topic settings for selection events.
type KafkaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers"`
	SelectionTopic string        `yaml:"selectionTopic"`
	ConsumerGroup  string        `yaml:"consumerGroup"`
	BatchSize      int           `yaml:"batchSize"`
	BufferSize     int           `yaml:"bufferSize"`
	FlushInterval  time.Duration `yaml:"flushInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8090,
			ReadTimeout:        10 * time.Second,
			WriteTimeout:       10 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			SessionIdleTimeout: 30 * time.Minute,
			SlowRequest:        250 * time.Millisecond,
		},
		RPC: RPCConfig{
			Enabled: true,
			Addr:    ":9400",
		},
		Assets: AssetsConfig{
			DictionaryPath:  "assets/dictionary.bin",
			AssociativePath: "assets/trigram.bin",
		},
		Paging: PagingConfig{
			PageSize:   9,
			MaxPerNode: 2,
		},
		Scores: ScoresConfig{
			Capacity: 2000,
		},
		Snapshot: SnapshotConfig{
			Backend:  "none",
			Interval: 30 * time.Second,
			Key:      "ime:personal-scores",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 4,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ime",
			User:            "ime",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Badger: BadgerConfig{
			DataDir: "data/snapshots",
		},
		Kafka: KafkaConfig{
			Brokers:        []string{"localhost:9092"},
			SelectionTopic: "ime-selections",
			ConsumerGroup:  "ime-replay",
			BatchSize:      100,
			BufferSize:     10000,
			FlushInterval:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9091,
		},
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Paging.PageSize <= 0 {
		return fmt.Errorf("paging.pageSize must be positive, got %d", c.Paging.PageSize)
	}
	if c.Scores.Capacity <= 0 {
		return fmt.Errorf("scores.capacity must be positive, got %d", c.Scores.Capacity)
	}
	switch c.Snapshot.Backend {
	case "none", "redis", "postgres", "badger":
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	return nil
}

// applyEnvOverrides reads IME_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IME_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IME_RPC_ADDR"); v != "" {
		cfg.RPC.Addr = v
	}
	if v := os.Getenv("IME_DICTIONARY_PATH"); v != "" {
		cfg.Assets.DictionaryPath = v
	}
	if v := os.Getenv("IME_ASSOCIATIVE_PATH"); v != "" {
		cfg.Assets.AssociativePath = v
	}
	if v := os.Getenv("IME_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Paging.PageSize = n
		}
	}
	if v := os.Getenv("IME_SNAPSHOT_BACKEND"); v != "" {
		cfg.Snapshot.Backend = v
	}
	if v := os.Getenv("IME_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("IME_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("IME_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("IME_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("IME_BADGER_DIR"); v != "" {
		cfg.Badger.DataDir = v
	}
	if v := os.Getenv("IME_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("IME_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("IME_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IME_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
