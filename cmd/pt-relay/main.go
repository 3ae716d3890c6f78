package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/relay"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/mq"
	"github.com/tuanvumaihuynh/product-tracker/internal/telemetry"
	"github.com/tuanvumaihuynh/product-tracker/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running relay application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	outboxMsgRepository := repository.NewOutboxMsgRepository(dbClient)

	purger := relay.NewPurger(cfg.Relay, logger, outboxMsgRepository)
	cleanupPurger, err := purger.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running outbox purger: %w", err)
	}
	logger.InfoContext(ctx, "outbox purger started", slog.String("schedule", cfg.Relay.PurgeSchedule))

	interruptChan := cmdutil.InterruptChan()

	svc := relay.NewService(cfg.Relay, logger, dbClient, outboxMsgRepository, kafkaProducer)
	cleanup := svc.Run(ctx)
	logger.InfoContext(ctx, "relay service started")

	<-interruptChan

	logger.InfoContext(ctx, "relay service is shutting down")
	cleanup()
	cleanupPurger()

	logger.InfoContext(ctx, "relay service is stopped")

	return nil
}
