// Package config loads and validates run configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem (Input, Output, Measure, Engine, Filter, exports, etc.).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/allpairs/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Measure  MeasureConfig  `yaml:"measure"`
	Engine   EngineConfig   `yaml:"engine"`
	Filter   FilterConfig   `yaml:"filter"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InputConfig names the input files and how their tokens are decoded.
type InputConfig struct {
	// EntryFeatures is the entry/feature/weight file compared on the A side.
	EntryFeatures string `yaml:"entryFeatures"`
	// EntryFeaturesB is the B side; empty means EntryFeatures.
	EntryFeaturesB string `yaml:"entryFeaturesB"`
	// Features is the feature frequency file, required by some measures.
	Features        string `yaml:"features"`
	Charset         string `yaml:"charset"`
	CombinedIndex   bool   `yaml:"combinedIndex"`
	InternCacheSize int    `yaml:"internCacheSize"`
	Mmap            bool   `yaml:"mmap"`
}

// BSide returns the B-side input path.
func (i InputConfig) BSide() string {
	if i.EntryFeaturesB != "" {
		return i.EntryFeaturesB
	}
	return i.EntryFeatures
}

// OutputConfig controls the similarity output file.
type OutputConfig struct {
	Path    string `yaml:"path"`
	Compact bool   `yaml:"compact"`
}

// MeasureConfig selects the proximity measure and its parameters.
type MeasureConfig struct {
	Name            string  `yaml:"name"`
	Reversed        bool    `yaml:"reversed"`
	LpP             float64 `yaml:"lpP"`
	LeeAlpha        float64 `yaml:"leeAlpha"`
	FilteredFeature string  `yaml:"filteredFeature"`
}

// EngineConfig controls the comparison algorithm and the worker pool.
type EngineConfig struct {
	Algorithm string `yaml:"algorithm"`
	ChunkSize int    `yaml:"chunkSize"`
	// Threads is the worker count; zero means one more than the CPU count.
	Threads int `yaml:"threads"`
}

// FilterConfig bounds the emitted similarity scores.
type FilterConfig struct {
	MinSimilarity float64 `yaml:"minSimilarity"`
	MaxSimilarity float64 `yaml:"maxSimilarity"`
	IdentityPairs bool    `yaml:"identityPairs"`
}

// PostgresConfig holds PostgreSQL connection parameters for the pair export.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	Table           string        `yaml:"table"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	// BatchSize is the number of pairs copied per transaction.
	BatchSize int `yaml:"batchSize"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds the broker list and the run event topic.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// ConsumerGroup is the group used when following run events.
	ConsumerGroup string `yaml:"consumerGroup"`
}

// RedisConfig holds Redis connection and export parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
	BatchSize int           `yaml:"batchSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles the stage span tree logged at the end of a run.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus scrape server and Pushgateway push.
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Port           int    `yaml:"port"`
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values. Load does not validate; call Validate once the caller has applied
// its own overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "parsing config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with the stock run defaults.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Charset:         "UTF-8",
			CombinedIndex:   true,
			InternCacheSize: 4096,
			Mmap:            true,
		},
		Output: OutputConfig{
			Compact: true,
		},
		Measure: MeasureConfig{
			Name:            "jaccard",
			LpP:             2,
			LeeAlpha:        0.99,
			FilteredFeature: "___FILTERED___",
		},
		Engine: EngineConfig{
			Algorithm: "inverted",
			ChunkSize: 5000,
		},
		Filter: FilterConfig{
			MinSimilarity: math.Inf(-1),
			MaxSimilarity: math.Inf(1),
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "allpairs",
			User:            "allpairs",
			Password:        "localdev",
			SSLMode:         "disable",
			Table:           "similarities",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			BatchSize:       5000,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			Topic:         "allpairs.runs",
			ConsumerGroup: "allpairs-events",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "sim:",
			BatchSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Job:  "allpairs",
		},
	}
}

// Validate checks the settings that can be judged without opening any file.
// Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Newf(apperrors.ErrInvalidConfig, format, args...)
	}
	if c.Input.EntryFeatures == "" {
		return apperrors.New(apperrors.ErrMissingInput, "input.entryFeatures is required")
	}
	if c.Output.Path == "" {
		return invalid("output.path is required")
	}
	if c.Engine.ChunkSize <= 0 {
		return invalid("engine.chunkSize must be positive, got %d", c.Engine.ChunkSize)
	}
	if c.Engine.Threads < 0 {
		return invalid("engine.threads must not be negative, got %d", c.Engine.Threads)
	}
	switch c.Engine.Algorithm {
	case "inverted", "naive":
	default:
		return invalid("engine.algorithm must be inverted or naive, got %q", c.Engine.Algorithm)
	}
	if math.IsNaN(c.Filter.MinSimilarity) || math.IsNaN(c.Filter.MaxSimilarity) {
		return invalid("filter bounds must be numbers")
	}
	if c.Filter.MinSimilarity > c.Filter.MaxSimilarity {
		return invalid("filter.minSimilarity %v exceeds filter.maxSimilarity %v",
			c.Filter.MinSimilarity, c.Filter.MaxSimilarity)
	}
	if c.Measure.Name == "" {
		return invalid("measure.name is required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return invalid("redis.addr is required when redis export is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.Table == "" {
		return invalid("postgres.table is required when postgres export is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return invalid("kafka.brokers and kafka.topic are required when run events are enabled")
	}
	return nil
}

// applyEnvOverrides reads APSS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("APSS_INPUT_ENTRY_FEATURES"); v != "" {
		cfg.Input.EntryFeatures = v
	}
	if v := os.Getenv("APSS_INPUT_ENTRY_FEATURES_B"); v != "" {
		cfg.Input.EntryFeaturesB = v
	}
	if v := os.Getenv("APSS_INPUT_FEATURES"); v != "" {
		cfg.Input.Features = v
	}
	if v := os.Getenv("APSS_INPUT_CHARSET"); v != "" {
		cfg.Input.Charset = v
	}
	if v := os.Getenv("APSS_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("APSS_MEASURE_NAME"); v != "" {
		cfg.Measure.Name = v
	}
	if v := os.Getenv("APSS_ENGINE_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.ChunkSize = n
		}
	}
	if v := os.Getenv("APSS_ENGINE_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Threads = n
		}
	}
	if v := os.Getenv("APSS_FILTER_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Filter.MinSimilarity = f
		}
	}
	if v := os.Getenv("APSS_FILTER_MAX_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Filter.MaxSimilarity = f
		}
	}
	if v := os.Getenv("APSS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("APSS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("APSS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("APSS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("APSS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("APSS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("APSS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("APSS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("APSS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("APSS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("APSS_METRICS_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}
