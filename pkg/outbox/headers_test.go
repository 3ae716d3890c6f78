package outbox_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/tuanvumaihuynh/product-tracker/pkg/correlationid"
	"github.com/tuanvumaihuynh/product-tracker/pkg/outbox"
)

func TestHeaders(t *testing.T) {
	t.Run("Should round trip correlation ID through headers", func(t *testing.T) {
		ctx := correlationid.NewContext(context.Background(), "abc-123")

		headers := outbox.BuildHeaders(ctx)
		assert.Equal(t, "abc-123", headers[correlationid.Header])

		got, ok := correlationid.FromContext(outbox.ExtractContextFromHeaders(context.Background(), headers))
		assert.True(t, ok)
		assert.Equal(t, "abc-123", got)
	})

	t.Run("Should build empty headers without correlation ID", func(t *testing.T) {
		headers := outbox.BuildHeaders(context.Background())

		_, ok := headers[correlationid.Header]
		assert.False(t, ok)
	})

	t.Run("Should flatten record headers", func(t *testing.T) {
		rec := &kgo.Record{Headers: []kgo.RecordHeader{
			{Key: correlationid.Header, Value: []byte("first")},
			{Key: "traceparent", Value: []byte("00-abc")},
			{Key: correlationid.Header, Value: []byte("second")},
		}}

		headers := outbox.HeadersFromRecord(rec)
		assert.Equal(t, "second", headers[correlationid.Header])
		assert.Equal(t, "00-abc", headers["traceparent"])
	})
}
