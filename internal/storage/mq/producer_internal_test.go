package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/product-tracker/pkg/outbox"
	"github.com/tuanvumaihuynh/product-tracker/pkg/ptr"
)

func TestBuildProduceRecord(t *testing.T) {
	t.Run("Should copy topic payload headers and key", func(t *testing.T) {
		rec := buildProduceRecord(ProduceMsg{
			Topic:        "product.created",
			Headers:      map[string]string{"X-Correlation-ID": "abc", "traceparent": "00-1"},
			Payload:      []byte(`{"productId":1}`),
			PartitionKey: ptr.New("1"),
		})

		assert.Equal(t, "product.created", rec.Topic)
		assert.Equal(t, []byte(`{"productId":1}`), rec.Value)
		assert.Equal(t, []byte("1"), rec.Key)
		assert.Equal(t, map[string]string{"X-Correlation-ID": "abc", "traceparent": "00-1"}, outbox.HeadersFromRecord(rec))
	})

	t.Run("Should leave key empty without partition key", func(t *testing.T) {
		rec := buildProduceRecord(ProduceMsg{Topic: "product.deleted"})

		assert.Nil(t, rec.Key)
		assert.Empty(t, rec.Headers)
	})
}
