package mq

import (
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

var (
	tracer = otel.Tracer("github.com/tuanvumaihuynh/product-tracker/internal/storage/mq")

	// kTracer injects trace context into produced records and extracts it
	// from fetched ones.
	kTracer = kotel.NewTracer()
)
