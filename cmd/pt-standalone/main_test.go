package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/relay"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/mq"
)

// stalledProducer blocks every Produce until release is closed.
type stalledProducer struct {
	started chan struct{}
	release chan struct{}
}

func (p *stalledProducer) Produce(ctx context.Context, _ mq.ProduceMsg) error {
	select {
	case p.started <- struct{}{}:
	default:
	}
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNewStorage_Memory(t *testing.T) {
	t.Run("Should keep product writes running while the relay waits on the broker", func(t *testing.T) {
		ctx := context.Background()

		store, err := newStorage(ctx, config.Storage{Driver: config.StorageDriverMemory}, config.Postgres{})
		require.NoError(t, err)
		defer store.close()

		productSvc := service.NewProductService(log.Discard(), store.transactor, store.productRepo,
			service.WithOutbox(store.outboxMsgRepo))

		params := service.CreateProductParams{
			Name:            "P",
			OwnerName:       "Owner",
			ScrumMasterName: "Jane Doe",
			StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Methodology:     model.MethodologyAgile,
			Location:        "https://github.com/example/repo",
		}
		_, err = productSvc.CreateProduct(ctx, params)
		require.NoError(t, err)

		producer := &stalledProducer{started: make(chan struct{}, 1), release: make(chan struct{})}
		relaySvc := relay.NewService(config.Relay{BatchSize: 10, Interval: 5 * time.Millisecond},
			log.Discard(), store.relayTransactor, store.outboxMsgRepo, producer)
		cleanup := relaySvc.Run(ctx)
		defer cleanup()
		defer close(producer.release)

		select {
		case <-producer.started:
		case <-time.After(2 * time.Second):
			t.Fatal("relay never produced")
		}

		created := make(chan error, 1)
		go func() {
			_, err := productSvc.CreateProduct(ctx, params)
			created <- err
		}()

		select {
		case err := <-created:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("create blocked behind the relay")
		}
	})
}
