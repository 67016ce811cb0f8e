package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the fileflow binaries.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Metadata MetadataConfig
	Notify   NotifyConfig
	Ingest   IngestConfig
	Stream   StreamConfig
	Tracing  TracingConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"fileflow"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxBodyBytes int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"1"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"10ms"`
}

// StorageConfig selects and configures the object store gateway.
type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"s3"`
	Endpoint  string `env:"STORAGE_ENDPOINT"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	AccessKey string `env:"STORAGE_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_SECRET_KEY"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	PathStyle bool   `env:"STORAGE_PATH_STYLE" envDefault:"false"`
}

// MetadataConfig selects the metadata store. TABLE_NAME matches the name
// the deployment injects into the functions.
type MetadataConfig struct {
	Provider string `env:"METADATA_PROVIDER" envDefault:"dynamodb"`
	Table    string `env:"TABLE_NAME"`
	Region   string `env:"DYNAMODB_REGION" envDefault:"us-east-1"`
	Endpoint string `env:"DYNAMODB_ENDPOINT"`
}

type NotifyConfig struct {
	Provider string `env:"NOTIFY_PROVIDER" envDefault:"sns"`
	Topic    string `env:"TOPIC_ARN"`
	Region   string `env:"SNS_REGION" envDefault:"us-east-1"`
	Endpoint string `env:"SNS_ENDPOINT"`
	NatsURL  string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
}

type IngestConfig struct {
	AllowedExtensions []string `env:"INGEST_ALLOWED_EXTENSIONS" envSeparator:"," envDefault:".pdf,.jpg,.png"`
	QuarantinePrefix  string   `env:"INGEST_QUARANTINE_PREFIX" envDefault:"errors/"`
	MaxSizeBytes      int64    `env:"INGEST_MAX_SIZE_BYTES" envDefault:"0"`
	// KeyPatterns are globs an object key must match; empty admits all.
	KeyPatterns []string `env:"INGEST_KEY_PATTERNS" envSeparator:","`
}

// StreamConfig drives the change-log tailer of the daemon.
type StreamConfig struct {
	ARN          string        `env:"STREAM_ARN"`
	BatchSize    int32         `env:"STREAM_BATCH_SIZE" envDefault:"1"`
	PollInterval time.Duration `env:"STREAM_POLL_INTERVAL" envDefault:"1s"`
	// DiscoverInterval is how often shards are listed again to pick up splits.
	DiscoverInterval time.Duration `env:"STREAM_DISCOVER_INTERVAL" envDefault:"1m"`
	MaxRetries       int           `env:"STREAM_MAX_RETRIES" envDefault:"3"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=fileflow"`
}

type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateIngestion checks the settings the ingestion stage depends on.
func (c *Config) ValidateIngestion() error {
	var errs []error

	switch c.Storage.Provider {
	case "s3", "memory":
	case "minio":
		if c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("STORAGE_ENDPOINT is required for minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.Storage.Provider))
	}

	switch c.Metadata.Provider {
	case "dynamodb":
		if c.Metadata.Table == "" {
			errs = append(errs, errors.New("TABLE_NAME is required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported METADATA_PROVIDER %q", c.Metadata.Provider))
	}

	if len(c.Ingest.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("INGEST_ALLOWED_EXTENSIONS must not be empty"))
	}
	if strings.TrimSpace(c.Ingest.QuarantinePrefix) == "" {
		errs = append(errs, errors.New("INGEST_QUARANTINE_PREFIX must not be empty"))
	}
	if c.Ingest.MaxSizeBytes < 0 {
		errs = append(errs, errors.New("INGEST_MAX_SIZE_BYTES must not be negative"))
	}

	return errors.Join(errs...)
}

// ValidateNotification checks the settings the notification stage depends on.
func (c *Config) ValidateNotification() error {
	var errs []error

	switch c.Notify.Provider {
	case "sns", "kafka", "nats", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported NOTIFY_PROVIDER %q", c.Notify.Provider))
	}
	if c.Notify.Topic == "" {
		errs = append(errs, errors.New("TOPIC_ARN is required"))
	}

	return errors.Join(errs...)
}
