package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository"
	"github.com/tuanvumaihuynh/product-tracker/internal/repository/memory"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/db"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/mq"
)

type fakeProducer struct {
	mu       sync.Mutex
	produced []mq.ProduceMsg
	failOn   string
}

func (p *fakeProducer) Produce(_ context.Context, msg mq.ProduceMsg) error {
	if msg.Topic == p.failOn {
		return errors.New("broker unavailable")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.produced = append(p.produced, msg)
	return nil
}

func (p *fakeProducer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.produced)
}

func newOutbox(t *testing.T, topics ...string) *memory.OutboxMsgRepository {
	t.Helper()

	store, err := memory.NewStore()
	require.NoError(t, err)
	repo := memory.NewOutboxMsgRepository(store)

	for _, topic := range topics {
		require.NoError(t, repo.CreateOutboxMsg(context.Background(), repository.CreateOutboxMsgParams{
			Topic:   topic,
			Headers: map[string]string{"X-Correlation-ID": "abc"},
			Payload: json.RawMessage(`{}`),
		}))
	}

	return repo
}

func unprocessed(t *testing.T, repo repository.OutboxMsgRepository) []repository.ListUnprocessedOutboxMsgsResult {
	t.Helper()

	msgs, err := repo.ListUnprocessedOutboxMsgs(context.Background(), repository.ListUnprocessedOutboxMsgsParams{BatchSize: 100})
	require.NoError(t, err)
	return msgs
}

func TestService_RelayBatch(t *testing.T) {
	ctx := context.Background()
	cfg := config.Relay{BatchSize: 2, Interval: time.Hour}

	t.Run("Should publish a batch and mark it processed", func(t *testing.T) {
		repo := newOutbox(t, "product.created", "product.updated", "product.deleted")
		producer := &fakeProducer{}
		svc := NewService(cfg, log.Discard(), db.NewLocalTransactor(), repo, producer)

		relayed, err := svc.relayBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, relayed)
		assert.Equal(t, 2, producer.count())
		assert.Equal(t, "abc", producer.produced[0].Headers["X-Correlation-ID"])
		assert.Len(t, unprocessed(t, repo), 1)

		relayed, err = svc.relayBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, relayed)
		assert.Empty(t, unprocessed(t, repo))
	})

	t.Run("Should mark failed messages processed with an error", func(t *testing.T) {
		repo := newOutbox(t, "product.created", "product.deleted")
		producer := &fakeProducer{failOn: "product.deleted"}
		svc := NewService(cfg, log.Discard(), db.NewLocalTransactor(), repo, producer)

		relayed, err := svc.relayBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, relayed)
		assert.Equal(t, 1, producer.count())
		assert.Empty(t, unprocessed(t, repo))
	})

	t.Run("Should do nothing on empty outbox", func(t *testing.T) {
		producer := &fakeProducer{}
		svc := NewService(cfg, log.Discard(), db.NewLocalTransactor(), newOutbox(t), producer)

		relayed, err := svc.relayBatch(ctx)
		require.NoError(t, err)
		assert.Zero(t, relayed)
		assert.Zero(t, producer.count())
	})
}

func TestService_Run(t *testing.T) {
	t.Run("Should relay on every tick until cleanup", func(t *testing.T) {
		repo := newOutbox(t, "product.created", "product.updated")
		producer := &fakeProducer{}
		svc := NewService(config.Relay{BatchSize: 1, Interval: 10 * time.Millisecond}, log.Discard(), db.NewLocalTransactor(), repo, producer)

		cleanup := svc.Run(context.Background())
		require.Eventually(t, func() bool {
			return producer.count() == 2
		}, 2*time.Second, 10*time.Millisecond)
		cleanup()

		assert.Empty(t, unprocessed(t, repo))
	})
}

func TestPurger(t *testing.T) {
	ctx := context.Background()

	t.Run("Should delete messages processed before the retention window", func(t *testing.T) {
		repo := newOutbox(t, "product.created", "product.updated")
		msgs := unprocessed(t, repo)
		require.NoError(t, repo.BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
			Items: []repository.BulkUpdateOutboxMsgsItem{{ID: msgs[0].ID}},
		}))

		purger := NewPurger(config.Relay{PurgeSchedule: "@every 1h", PurgeRetention: time.Hour}, log.Discard(), repo)

		purged, err := purger.purge(ctx)
		require.NoError(t, err)
		assert.Zero(t, purged)

		purger.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		purged, err = purger.purge(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)
		assert.Len(t, unprocessed(t, repo), 1)
	})

	t.Run("Should reject an invalid schedule", func(t *testing.T) {
		purger := NewPurger(config.Relay{PurgeSchedule: "every hour"}, log.Discard(), newOutbox(t))

		_, err := purger.Run(ctx)
		assert.Error(t, err)
	})

	t.Run("Should start and stop the scheduler", func(t *testing.T) {
		purger := NewPurger(config.Relay{PurgeSchedule: "@every 1h", PurgeRetention: time.Hour}, log.Discard(), newOutbox(t))

		cleanup, err := purger.Run(ctx)
		require.NoError(t, err)
		cleanup()
	})
}
