package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/your-org/fileflow/internal/app"
	"github.com/your-org/fileflow/internal/ingestion"
	"github.com/your-org/fileflow/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	logr := a.Logger

	ingest, err := a.IngestionHandler(ctx)
	if err != nil {
		logr.Fatal("init ingestion handler", zap.Error(err))
	}

	var wg sync.WaitGroup
	if cfg.Stream.ARN != "" {
		notifier, err := a.NotificationHandler(ctx)
		if err != nil {
			logr.Fatal("init notification handler", zap.Error(err))
		}
		tailer, err := a.StreamTailer(ctx, notifier)
		if err != nil {
			logr.Fatal("init stream tailer", zap.Error(err))
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logr.Info("tailing change stream", zap.String("stream_arn", cfg.Stream.ARN))
			if err := tailer.Run(ctx); err != nil {
				logr.Error("stream tailer stopped", zap.Error(err))
			}
		}()
	} else {
		logr.Warn("STREAM_ARN not set, change notifications are disabled")
	}

	root := chi.NewRouter()
	if a.Registry != nil {
		root.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	}
	root.Mount("/", ingestion.NewHTTPHandler(ingest, logr.Named("http"), cfg.HTTP.MaxBodyBytes).Router())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      root,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("fileflow daemon starting", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("http server failed", zap.Error(err))
	}

	wg.Wait()
	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logr.Error("shutdown failed", zap.Error(err))
	}
}
