package event_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/event"
	"github.com/tuanvumaihuynh/product-tracker/internal/log"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/storage/mq"
)

type fakeConsumer struct {
	handlers map[string]mq.HandlerFunc
	running  bool
	stopped  bool
}

func (c *fakeConsumer) RegisterHandler(topic string, handler mq.HandlerFunc) error {
	if c.handlers == nil {
		c.handlers = map[string]mq.HandlerFunc{}
	}
	c.handlers[topic] = handler
	return nil
}

func (c *fakeConsumer) Run(context.Context) (mq.CleanupFunc, error) {
	c.running = true
	return func() { c.stopped = true }, nil
}

func TestService(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := log.New(&buf, config.Log{Level: slog.LevelDebug, Format: config.LogFormatJSON})
	consumer := &fakeConsumer{}

	cleanup, err := event.New(logger, consumer).Run(ctx)
	require.NoError(t, err)

	t.Run("Should register every product topic and start the consumer", func(t *testing.T) {
		assert.True(t, consumer.running)
		assert.Contains(t, consumer.handlers, event.TopicProductCreated)
		assert.Contains(t, consumer.handlers, event.TopicProductUpdated)
		assert.Contains(t, consumer.handlers, event.TopicProductDeleted)
	})

	t.Run("Should decode and handle product created event", func(t *testing.T) {
		buf.Reset()
		payload, err := json.Marshal(event.ProductCreatedEvent{
			Product: event.NewProduct(model.Product{
				ID:          7,
				Name:        "Tracker",
				StartDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Methodology: model.MethodologyAgile,
			}),
			OccurredAt: time.Now(),
		})
		require.NoError(t, err)

		err = consumer.handlers[event.TopicProductCreated](ctx, event.TopicProductCreated, payload)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "handling product created event")
		assert.Contains(t, buf.String(), `"product_id":7`)
	})

	t.Run("Should fail on malformed payload", func(t *testing.T) {
		err := consumer.handlers[event.TopicProductDeleted](ctx, event.TopicProductDeleted, []byte("{"))

		assert.ErrorContains(t, err, "unmarshal product.deleted event")
	})

	t.Run("Should stop the consumer on cleanup", func(t *testing.T) {
		cleanup()

		assert.True(t, consumer.stopped)
	})
}

func TestNewProduct(t *testing.T) {
	t.Run("Should format start date and default developers", func(t *testing.T) {
		p := event.NewProduct(model.Product{
			ID:          1,
			StartDate:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
			Methodology: model.MethodologyWaterfall,
		})

		assert.Equal(t, "2023-12-31", p.StartDate)
		assert.Equal(t, "Waterfall", p.Methodology)
		assert.Equal(t, []string{}, p.Developers)
	})
}
