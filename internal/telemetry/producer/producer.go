// Package producer defines the interface for relaying telemetry events to a broker (e.g. Kafka).
package producer

import (
	"context"

	"envmonitor/console/internal/telemetry"
)

// Producer emits telemetry events. Callers use it best-effort: log and ignore errors.
// It satisfies telemetry.EventEmitter so it can be combined with the OTel emitter.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
