// Package app builds the gateways and handlers the fileflow binaries share
// from a loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/ingestion"
	"github.com/your-org/fileflow/internal/notification"
	"github.com/your-org/fileflow/pkg/config"
	"github.com/your-org/fileflow/pkg/kafka"
	"github.com/your-org/fileflow/pkg/logger"
	"github.com/your-org/fileflow/pkg/metastore"
	"github.com/your-org/fileflow/pkg/metrics"
	"github.com/your-org/fileflow/pkg/notify"
	"github.com/your-org/fileflow/pkg/storage/objectstore"
	"github.com/your-org/fileflow/pkg/tracing"
)

// App owns the process-wide logger, telemetry and every gateway it opened.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Pipeline

	closers []func(context.Context) error
}

// New sets up logging, tracing and, when enabled, the metrics registry.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logr, err := logger.New(logger.Options{
		Level:       cfg.App.LogLevel,
		Service:     cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Config: cfg, Logger: logr}

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, traceShutdown)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.Registry = reg
		a.Metrics = m
	}

	return a, nil
}

// IngestionHandler opens the object and metadata stores and builds the
// ingestion stage on top of them.
func (a *App) IngestionHandler(ctx context.Context) (*ingestion.Handler, error) {
	cfg := a.Config
	if err := cfg.ValidateIngestion(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := objectstore.New(ctx, objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		PathStyle: cfg.Storage.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return store.Close() })

	records, err := metastore.New(ctx, metastore.Config{
		Provider: cfg.Metadata.Provider,
		Table:    cfg.Metadata.Table,
		Region:   cfg.Metadata.Region,
		Endpoint: cfg.Metadata.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("init metadata store: %w", err)
	}

	policy, err := ingestion.NewPolicy(cfg.Ingest.AllowedExtensions, cfg.Ingest.MaxSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("build validation policy: %w", err)
	}

	filter, err := ingestion.NewKeyFilter(cfg.Ingest.KeyPatterns)
	if err != nil {
		return nil, fmt.Errorf("build key filter: %w", err)
	}

	return ingestion.NewHandler(ingestion.Params{
		Store:            store,
		Records:          records,
		Policy:           policy,
		Filter:           filter,
		QuarantinePrefix: cfg.Ingest.QuarantinePrefix,
		Logger:           a.Logger.Named("ingestion"),
		Metrics:          a.Metrics,
	})
}

// NotificationHandler opens the configured notification transport and
// builds the notification stage.
func (a *App) NotificationHandler(ctx context.Context) (*notification.Handler, error) {
	cfg := a.Config
	if err := cfg.ValidateNotification(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pub, err := notify.New(ctx, notify.Config{
		Provider: cfg.Notify.Provider,
		Region:   cfg.Notify.Region,
		Endpoint: cfg.Notify.Endpoint,
		NatsURL:  cfg.Notify.NatsURL,
		Kafka: kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("init notification publisher: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })

	return notification.NewHandler(notification.Params{
		Publisher: pub,
		Topic:     cfg.Notify.Topic,
		Logger:    a.Logger.Named("notification"),
		Metrics:   a.Metrics,
	})
}

// StreamTailer connects to the metadata table's stream and feeds it into h.
func (a *App) StreamTailer(ctx context.Context, h *notification.Handler) (*notification.StreamTailer, error) {
	cfg := a.Config
	if cfg.Stream.ARN == "" {
		return nil, errors.New("STREAM_ARN is required to tail the change log")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Metadata.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := dynamodbstreams.NewFromConfig(awsCfg, func(o *dynamodbstreams.Options) {
		if cfg.Metadata.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Metadata.Endpoint)
		}
	})

	return notification.NewStreamTailer(notification.TailerParams{
		Client:           client,
		StreamARN:        cfg.Stream.ARN,
		Handler:          h,
		BatchSize:        cfg.Stream.BatchSize,
		PollInterval:     cfg.Stream.PollInterval,
		DiscoverInterval: cfg.Stream.DiscoverInterval,
		MaxRetries:       cfg.Stream.MaxRetries,
		Logger:           a.Logger.Named("stream"),
	}), nil
}

// Flush pushes buffered spans and log lines out. The Lambda binaries call
// it at the end of every invocation because Close never runs there.
func (a *App) Flush(ctx context.Context) error {
	err := tracing.ForceFlush(ctx)
	_ = a.Logger.Sync()
	return err
}

// Close releases gateways in reverse order of creation and flushes
// telemetry.
func (a *App) Close(ctx context.Context) error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i](ctx))
	}
	_ = a.Logger.Sync()
	return err
}
