package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/event"
	"github.com/tuanvumaihuynh/product-tracker/internal/http"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/relay"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository/memory"
	"github.com/tuanvumaihuynh/product-tracker/internal/seed"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/cache"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/mq"
	"github.com/tuanvumaihuynh/product-tracker/internal/telemetry"
	"github.com/tuanvumaihuynh/product-tracker/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running standalone application: %v\n", err)
		os.Exit(1)
	}
}

// storage is the product store backend selected by STORAGE_DRIVER.
type storage struct {
	transactor db.Transactor
	// relayTransactor scopes relay batches. For the memory store it is separate
	// from transactor so broker round-trips never hold the product lock.
	relayTransactor db.Transactor
	healthChecker   db.HealthChecker
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
	close         func()
}

func newStorage(ctx context.Context, cfg config.Storage, pgCfg config.Postgres) (storage, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory:
		store, err := memory.NewStore()
		if err != nil {
			return storage{}, fmt.Errorf("error creating memory store: %w", err)
		}

		transactor := db.NewLocalTransactor()
		return storage{
			transactor:      transactor,
			relayTransactor: db.NewLocalTransactor(),
			healthChecker:   transactor,
			productRepo:     memory.NewProductRepository(store),
			outboxMsgRepo:   memory.NewOutboxMsgRepository(store),
			close:           func() {},
		}, nil
	default:
		pgxPool, err := db.NewPgxPool(ctx, pgCfg)
		if err != nil {
			return storage{}, fmt.Errorf("error creating pgx pool: %w", err)
		}

		dbClient := db.NewClient(pgxPool)
		return storage{
			transactor:      dbClient,
			relayTransactor: dbClient,
			healthChecker:   dbClient,
			productRepo:     repository.NewProductRepository(dbClient),
			outboxMsgRepo:   repository.NewOutboxMsgRepository(dbClient),
			close:           pgxPool.Close,
		}, nil
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Storage  config.Storage
		Postgres config.Postgres
		HTTP     config.HTTP
		Relay    config.Relay
		Kafka    config.Kafka
		Otel     config.Otel
		Cache    config.Cache
		Seed     config.Seed
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

	store, err := newStorage(ctx, cfg.Storage, cfg.Postgres)
	if err != nil {
		return err
	}
	defer store.close()
	logger.InfoContext(ctx, "product store ready", slog.String("driver", cfg.Storage.Driver.String()))

	var productOpts []service.ProductServiceOption

	if cfg.Cache.Enabled() {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			return fmt.Errorf("error creating redis client: %w", err)
		}
		defer redisClient.Close()

		productOpts = append(productOpts, service.WithCache(cache.NewRedisCache(redisClient, cfg.Cache.TTL)))
	}

	if cfg.Kafka.Enabled() {
		productOpts = append(productOpts, service.WithOutbox(store.outboxMsgRepo))
	}

	productService := service.NewProductService(logger, store.transactor, store.productRepo, productOpts...)

	if cfg.Seed.OnStart {
		seeder, err := seed.NewSeeder(cfg.Seed, logger, productService)
		if err != nil {
			return fmt.Errorf("error creating seeder: %w", err)
		}
		if _, err := seeder.Run(ctx); err != nil {
			return fmt.Errorf("error seeding products: %w", err)
		}
	}

	interruptChan := cmdutil.InterruptChan()
	var wg sync.WaitGroup

	wg.Go(func() {
		svc := http.New(cfg.HTTP, logger, productService, store.healthChecker)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running http service: %w", err))
		}

		logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

		<-interruptChan

		logger.InfoContext(ctx, "http service is shutting down")
		if err := cleanup(ctx); err != nil {
			logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
		}

		logger.InfoContext(ctx, "http service is stopped")
	})

	if !cfg.Kafka.Enabled() {
		logger.InfoContext(ctx, "kafka is not configured, product events are disabled")
		wg.Wait()
		return nil
	}

	kafkaProducer, err := mq.NewKafkaProducer(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("error creating kafka producer: %w", err)
	}
	defer kafkaProducer.Close()

	kafkaConsumer, err := mq.NewKafkaConsumer(ctx, cfg.Kafka, logger)
	if err != nil {
		return fmt.Errorf("error creating kafka consumer: %w", err)
	}

	wg.Go(func() {
		svc := event.New(logger, kafkaConsumer)
		cleanup, err := svc.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running event service: %w", err))
		}
		logger.InfoContext(ctx, "event service started")

		<-interruptChan

		logger.InfoContext(ctx, "event service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "event service is stopped")
	})

	wg.Go(func() {
		svc := relay.NewService(cfg.Relay, logger, store.relayTransactor, store.outboxMsgRepo, kafkaProducer)
		cleanup := svc.Run(ctx)
		logger.InfoContext(ctx, "relay service started")

		<-interruptChan

		logger.InfoContext(ctx, "relay service is shutting down")
		cleanup()

		logger.InfoContext(ctx, "relay service is stopped")
	})

	wg.Go(func() {
		purger := relay.NewPurger(cfg.Relay, logger, store.outboxMsgRepo)
		cleanup, err := purger.Run(ctx)
		if err != nil {
			panic(fmt.Errorf("error running outbox purger: %w", err))
		}
		logger.InfoContext(ctx, "outbox purger started", slog.String("schedule", cfg.Relay.PurgeSchedule))

		<-interruptChan

		cleanup()
		logger.InfoContext(ctx, "outbox purger is stopped")
	})

	wg.Wait()

	return nil
}
