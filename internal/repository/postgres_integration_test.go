//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/pkg/ptr"
)

// Run with a disposable database configured through POSTGRES_* variables:
//
//	go test -tags integration ./internal/repository/...
func setupPostgres(t *testing.T) (*db.Client, service.ProductService, repository.OutboxMsgRepository) {
	t.Helper()
	ctx := context.Background()

	cfg, err := config.New[config.Postgres]()
	require.NoError(t, err)

	pool, err := db.NewPgxPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(pool))
	_, err = pool.Exec(ctx, `TRUNCATE products, outbox_messages`)
	require.NoError(t, err)

	client := db.NewClient(pool)
	outboxRepo := repository.NewOutboxMsgRepository(client)
	svc := service.NewProductService(log.Discard(), client, repository.NewProductRepository(client),
		service.WithOutbox(outboxRepo))

	return client, svc, outboxRepo
}

func productParams(name, scrumMaster string, developers ...string) service.CreateProductParams {
	return service.CreateProductParams{
		Name:            name,
		OwnerName:       "Owner",
		Developers:      developers,
		ScrumMasterName: scrumMaster,
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Methodology:     model.MethodologyAgile,
		Location:        "https://github.com/example/repo",
	}
}

func TestPostgres_ProductLifecycle(t *testing.T) {
	ctx := context.Background()
	_, svc, outboxRepo := setupPostgres(t)

	t.Run("Should assign sequential ids and reuse the highest after delete", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			product, err := svc.CreateProduct(ctx, productParams("P", "Jane Doe"))
			require.NoError(t, err)
			assert.Equal(t, want, product.ID)
		}

		require.NoError(t, svc.DeleteProduct(ctx, 3))

		product, err := svc.CreateProduct(ctx, productParams("P", "Jane Doe"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), product.ID)
	})

	t.Run("Should merge a partial update under the row lock", func(t *testing.T) {
		updated, err := svc.UpdateProduct(ctx, 1, service.UpdateProductParams{
			Methodology: ptr.New(model.MethodologyWaterfall),
		})
		require.NoError(t, err)
		assert.Equal(t, "P", updated.Name)
		assert.Equal(t, model.MethodologyWaterfall, updated.Methodology)

		got, err := svc.GetProduct(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, model.MethodologyWaterfall, got.Methodology)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got.StartDate.UTC())
	})

	t.Run("Should return not found for missing products", func(t *testing.T) {
		_, err := svc.GetProduct(ctx, 99)
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

		_, err = svc.UpdateProduct(ctx, 99, service.UpdateProductParams{Name: ptr.New("X")})
		assert.ErrorIs(t, err, apperr.ProductNotFoundErr)

		assert.ErrorIs(t, svc.DeleteProduct(ctx, 99), apperr.ProductNotFoundErr)
	})

	t.Run("Should write one outbox message per mutation", func(t *testing.T) {
		msgs, err := outboxRepo.ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 100})
		require.NoError(t, err)
		// 4 creates, 1 delete, 1 update.
		assert.Len(t, msgs, 6)
	})
}

func TestPostgres_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := setupPostgres(t)

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			product, err := svc.CreateProduct(ctx, productParams("P", "Jane Doe"))
			if assert.NoError(t, err) {
				ids <- product.ID
			}
		})
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	for id := int64(1); id <= n; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}

func TestPostgres_ListFilters(t *testing.T) {
	ctx := context.Background()
	_, svc, _ := setupPostgres(t)

	_, err := svc.CreateProduct(ctx, productParams("A", "Jane Doe", "Alice Smith"))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, productParams("B", "John Roe", "Bob 100%_Done"))
	require.NoError(t, err)

	t.Run("Should match the scrum master case-insensitively", func(t *testing.T) {
		products, err := svc.ListProducts(ctx, service.ListProductsParams{ScrumMaster: "jane"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "A", products[0].Name)
	})

	t.Run("Should match any developer", func(t *testing.T) {
		products, err := svc.ListProducts(ctx, service.ListProductsParams{Developer: "SMITH"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, int64(1), products[0].ID)
	})

	t.Run("Should treat like wildcards literally", func(t *testing.T) {
		products, err := svc.ListProducts(ctx, service.ListProductsParams{Developer: "100%_"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "B", products[0].Name)

		products, err = svc.ListProducts(ctx, service.ListProductsParams{Developer: "%"})
		require.NoError(t, err)
		assert.Len(t, products, 1)
	})

	t.Run("Should list in id order", func(t *testing.T) {
		products, err := svc.ListProducts(ctx, service.ListProductsParams{})
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, int64(1), products[0].ID)
		assert.Equal(t, int64(2), products[1].ID)
	})
}
