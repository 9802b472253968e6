package otel

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"envmonitor/console/internal/telemetry"
)

const (
	meterName        = "envmonitor.telemetry"
	eventCounterName = "envmonitor.events"
)

// countingEmitter counts events per kind and source, then hands them to next.
type countingEmitter struct {
	next    telemetry.EventEmitter
	counter otelmetric.Int64Counter
}

// NewCountingEmitter wraps next with the envmonitor.events counter of provider. When the counter
// cannot be created, next is returned unchanged.
func NewCountingEmitter(next telemetry.EventEmitter, provider otelmetric.MeterProvider) telemetry.EventEmitter {
	counter, err := provider.Meter(meterName).Int64Counter(eventCounterName,
		otelmetric.WithDescription("Session, realtime, alert and admin events"),
		otelmetric.WithUnit("{event}"),
	)
	if err != nil {
		log.Printf("telemetry: event counter: %v", err)
		return next
	}
	return &countingEmitter{next: next, counter: counter}
}

func (e *countingEmitter) Emit(ctx context.Context, event *telemetry.Event) error {
	if event == nil {
		return nil
	}
	e.counter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("kind", event.Kind),
		attribute.String("source", event.Source),
	))
	return e.next.Emit(ctx, event)
}
