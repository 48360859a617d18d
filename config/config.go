package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Blob backends.
const (
	BlobMemory = "memory"
	BlobS3     = "s3"
)

// Config struct to hold the configuration settings
type Config struct {
	Store         StoreConfig         `yaml:"store"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	JWT           JWTConfig           `yaml:"jwt"`
	HTTP          HTTPConfig          `yaml:"http"`
	Aggregation   AggregationConfig   `yaml:"aggregation"`
	Recalc        RecalcConfig        `yaml:"recalc"`
	Blob          BlobConfig          `yaml:"blob"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend      string `yaml:"backend" env:"STORE_BACKEND"`
	MaxBatchSize int    `yaml:"max_batch_size" env:"STORE_MAX_BATCH_SIZE"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN      string `yaml:"dsn" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns" env:"DATABASE_MAX_CONNS"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL              string `yaml:"url" env:"NATS_URL"`
	NkeySeed         string `yaml:"nkey_seed" env:"NATS_NKEY_SEED"`
	QueueGroupPrefix string `yaml:"queue_group_prefix" env:"NATS_QUEUE_GROUP_PREFIX"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret" env:"JWT_SECRET"`
	Issuer     string        `yaml:"issuer" env:"JWT_ISSUER"`
	DefaultTTL time.Duration `yaml:"default_ttl" env:"JWT_DEFAULT_TTL"`
}

// HTTPConfig holds the admin API listener settings.
type HTTPConfig struct {
	Addr           string        `yaml:"addr" env:"HTTP_ADDR"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods []string      `yaml:"allowed_methods" env:"HTTP_ALLOWED_METHODS" envSeparator:","`
	CORSMaxAge     time.Duration `yaml:"cors_max_age" env:"HTTP_CORS_MAX_AGE"`
	RateLimit      float64       `yaml:"rate_limit" env:"HTTP_RATE_LIMIT"`
	RateBurst      int           `yaml:"rate_burst" env:"HTTP_RATE_BURST"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace" env:"HTTP_SHUTDOWN_GRACE"`
}

// AggregationConfig controls the live submission processor.
type AggregationConfig struct {
	Disabled    bool `yaml:"disabled" env:"AGGREGATION_DISABLED"`
	Deduplicate bool `yaml:"deduplicate" env:"AGGREGATION_DEDUPLICATE"`
}

// RecalcConfig controls the background recalculation queue. A zero Interval
// disables the periodic full recalculation.
type RecalcConfig struct {
	Interval   time.Duration `yaml:"interval" env:"RECALC_INTERVAL"`
	Workers    int           `yaml:"workers" env:"RECALC_WORKERS"`
	ExportPath string        `yaml:"export_path" env:"RECALC_EXPORT_PATH"`
}

// BlobConfig selects where exports are uploaded.
type BlobConfig struct {
	Backend      string        `yaml:"backend" env:"BLOB_BACKEND"`
	Endpoint     string        `yaml:"endpoint" env:"BLOB_ENDPOINT"`
	Region       string        `yaml:"region" env:"BLOB_REGION"`
	Bucket       string        `yaml:"bucket" env:"BLOB_BUCKET"`
	AccessKey    string        `yaml:"access_key" env:"BLOB_ACCESS_KEY"`
	SecretKey    string        `yaml:"secret_key" env:"BLOB_SECRET_KEY"`
	UsePathStyle bool          `yaml:"use_path_style" env:"BLOB_USE_PATH_STYLE"`
	PresignTTL   time.Duration `yaml:"presign_ttl" env:"BLOB_PRESIGN_TTL"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	ServiceName string     `yaml:"service_name" env:"SERVICE_NAME"`
	Environment string     `yaml:"environment" env:"ENV"`
	LogLevel    slog.Level `yaml:"log_level" env:"LOG_LEVEL"`
}

// LoadConfig loads the configuration from a YAML file and then applies
// environment overrides. A missing file is not an error; the configuration
// then comes from the environment alone.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
		if c.Postgres.DSN != "" {
			c.Store.Backend = StorePostgres
		}
	}
	if c.Store.MaxBatchSize == 0 {
		c.Store.MaxBatchSize = 500
	}
	if c.Postgres.MaxConns == 0 {
		c.Postgres.MaxConns = 10
	}
	if c.NATS.QueueGroupPrefix == "" {
		c.NATS.QueueGroupPrefix = "flagboard"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "flagboard"
	}
	if c.JWT.DefaultTTL == 0 {
		c.JWT.DefaultTTL = 12 * time.Hour
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.CORSMaxAge == 0 {
		c.HTTP.CORSMaxAge = 10 * time.Minute
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 5
	}
	if c.HTTP.RateBurst == 0 {
		c.HTTP.RateBurst = 10
	}
	if c.HTTP.ShutdownGrace == 0 {
		c.HTTP.ShutdownGrace = 10 * time.Second
	}
	if c.Recalc.Workers == 0 {
		c.Recalc.Workers = 1
	}
	if c.Recalc.ExportPath == "" {
		c.Recalc.ExportPath = "exports/leaderboard"
	}
	if c.Blob.Backend == "" {
		c.Blob.Backend = BlobMemory
	}
	if c.Blob.Region == "" {
		c.Blob.Region = "us-east-1"
	}
	if c.Blob.PresignTTL == 0 {
		c.Blob.PresignTTL = 15 * time.Minute
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "flagboard"
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = "development"
	}
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("store backend postgres requires postgres.dsn (DATABASE_URL)"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("store.max_batch_size must be positive, got %d", c.Store.MaxBatchSize))
	}

	switch c.Blob.Backend {
	case BlobMemory:
	case BlobS3:
		if c.Blob.Bucket == "" {
			errs = append(errs, errors.New("blob backend s3 requires blob.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob backend %q", c.Blob.Backend))
	}

	if c.Recalc.Interval < 0 {
		errs = append(errs, errors.New("recalc.interval must not be negative"))
	}
	if c.Recalc.Interval > 0 && c.Store.Backend != StorePostgres {
		errs = append(errs, errors.New("recalc.interval requires the postgres store backend"))
	}
	if c.JWT.Secret != "" && len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("jwt.secret must be at least 16 characters"))
	}
	return errors.Join(errs...)
}

// RequireJWTSecret reports an error when no signing secret is configured.
func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret (JWT_SECRET) is required")
	}
	return nil
}
