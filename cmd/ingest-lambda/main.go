package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/app"
	"github.com/your-org/fileflow/pkg/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// Lambda scrapes no /metrics endpoint.
	cfg.Metrics.Enabled = false

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}

	handler, err := a.IngestionHandler(ctx)
	if err != nil {
		a.Logger.Fatal("init ingestion handler", zap.Error(err))
	}

	a.Logger.Info("ingestion function starting")
	lambda.Start(func(ctx context.Context, e events.S3Event) error {
		err := handler.HandleS3Event(ctx, e)
		if ferr := a.Flush(ctx); ferr != nil {
			a.Logger.Warn("flush telemetry", zap.Error(ferr))
		}
		return err
	})
}
