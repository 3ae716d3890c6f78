package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/telemetry"
)

func TestInitTracer(t *testing.T) {
	t.Run("Should install only the propagator without a collector", func(t *testing.T) {
		shutdown, err := telemetry.InitTracer(context.Background(), config.Otel{ServiceName: "product-tracker"})
		require.NoError(t, err)

		assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())

		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("Should build an exporter for a configured collector", func(t *testing.T) {
		shutdown, err := telemetry.InitTracer(context.Background(), config.Otel{
			ServiceName:  "product-tracker",
			CollectorURL: "localhost:4317",
			Insecure:     true,
			TraceIDRatio: 1,
		})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = shutdown(ctx)
	})
}
