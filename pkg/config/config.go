// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Model, Catalog, Recommend, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Model     ModelConfig     `yaml:"model"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Recommend RecommendConfig `yaml:"recommend"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// RateLimitPerMinute caps requests per client IP; zero disables it.
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute" validate:"min=0"`
	CORSOrigins        []string `yaml:"corsOrigins"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	CatalogUpdated  string `yaml:"catalogUpdated"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// ModelConfig controls how the TF-IDF model is built. MaxFeatures of zero
// means unbounded.
type ModelConfig struct {
	MinDF       int `yaml:"minDF" validate:"min=1"`
	MaxFeatures int `yaml:"maxFeatures" validate:"min=0"`
	NgramMin    int `yaml:"ngramMin" validate:"min=1"`
	NgramMax    int `yaml:"ngramMax" validate:"gtefield=NgramMin"`

	// CacheSize counts snapshots held by the builder, the live one
	// included. Each holds an N×N float64 matrix (about 3.2 GB at 20000
	// titles), so values above 1 multiply steady-state memory.
	CacheSize int `yaml:"cacheSize" validate:"min=1"`
}

// CatalogConfig selects where titles come from and how many are kept.
type CatalogConfig struct {
	Source      string        `yaml:"source" validate:"oneof=csv postgres"`
	Path        string        `yaml:"path" validate:"required_if=Source csv"`
	Column      string        `yaml:"column"`
	MaxItems    int           `yaml:"maxItems" validate:"min=0"`
	SampleSeed  int64         `yaml:"sampleSeed"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// RecommendConfig bounds the per-query k accepted from clients.
type RecommendConfig struct {
	DefaultK int `yaml:"defaultK" validate:"gtefield=MinK,ltefield=MaxK"`
	MinK     int `yaml:"minK" validate:"min=0"`
	MaxK     int `yaml:"maxK" validate:"gtefield=MinK"`
}

// AnalyticsConfig controls query-event collection. A zero SnapshotInterval
// disables persisting aggregated stats to Postgres.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize" validate:"min=1"`
	FlushInterval    time.Duration `yaml:"flushInterval" validate:"gt=0"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval" validate:"min=0"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// TracingConfig toggles span logging for model builds.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values, or an error if the result fails validation.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate checks struct-tag constraints on every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "songs",
			User:            "recommender",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "title-recommender",
			Topics: KafkaTopics{
				CatalogUpdated:  "catalog-updated",
				AnalyticsEvents: "recommend-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Model: ModelConfig{
			MinDF:       3,
			MaxFeatures: 5000,
			NgramMin:    1,
			NgramMax:    3,
			CacheSize:   1,
		},
		Catalog: CatalogConfig{
			Source:      "csv",
			Path:        "data/Spotify_Youtube.csv",
			Column:      "Title",
			MaxItems:    20000,
			SampleSeed:  42,
			LoadTimeout: 2 * time.Minute,
		},
		Recommend: RecommendConfig{
			DefaultK: 10,
			MinK:     5,
			MaxK:     20,
		},
		Analytics: AnalyticsConfig{
			BufferSize:    100,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("TR_SERVER_PORT", &cfg.Server.Port)
	setInt("TR_SERVER_RATE_LIMIT", &cfg.Server.RateLimitPerMinute)
	setString("TR_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("TR_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("TR_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("TR_POSTGRES_USER", &cfg.Postgres.User)
	setString("TR_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("TR_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setBool("TR_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("TR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setBool("TR_REDIS_ENABLED", &cfg.Redis.Enabled)
	setString("TR_REDIS_ADDR", &cfg.Redis.Addr)
	setString("TR_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("TR_MODEL_MIN_DF", &cfg.Model.MinDF)
	setInt("TR_MODEL_MAX_FEATURES", &cfg.Model.MaxFeatures)
	setInt("TR_MODEL_NGRAM_MIN", &cfg.Model.NgramMin)
	setInt("TR_MODEL_NGRAM_MAX", &cfg.Model.NgramMax)
	setString("TR_CATALOG_SOURCE", &cfg.Catalog.Source)
	setString("TR_CATALOG_PATH", &cfg.Catalog.Path)
	setString("TR_CATALOG_COLUMN", &cfg.Catalog.Column)
	setInt("TR_CATALOG_MAX_ITEMS", &cfg.Catalog.MaxItems)
	setInt("TR_RECOMMEND_DEFAULT_K", &cfg.Recommend.DefaultK)
	setString("TR_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("TR_LOGGING_FORMAT", &cfg.Logging.Format)
	setBool("TR_TRACING_ENABLED", &cfg.Tracing.Enabled)
}
