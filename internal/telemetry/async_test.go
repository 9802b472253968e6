package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
	delay   time.Duration
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	// Should not panic
	EmitAsync(nil, context.Background(), NewEvent(KindSessionCleared, "test", "", "", nil))
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}

	EmitAsync(emitter, context.Background(), nil)
	time.Sleep(10 * time.Millisecond)

	if events := emitter.getEvents(); len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestEmitAsync_SuccessfulEmit(t *testing.T) {
	emitter := &mockEventEmitter{}
	event := NewEvent(KindSessionEstablished, "console", "alice", "user-1", map[string]string{"role": "ADMIN"})

	EmitAsync(emitter, context.Background(), event)
	time.Sleep(100 * time.Millisecond)

	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != KindSessionEstablished {
		t.Errorf("event kind = %q, want %q", events[0].Kind, KindSessionEstablished)
	}
	if events[0].Actor != "alice" {
		t.Errorf("event actor = %q, want %q", events[0].Actor, "alice")
	}
	if string(events[0].Payload) != `{"role":"ADMIN"}` {
		t.Errorf("event payload = %s, want %s", events[0].Payload, `{"role":"ADMIN"}`)
	}
}

func TestEmitAsync_UsesBackgroundContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	EmitAsync(emitter, ctx, NewEvent(KindRealtimeState, "test", "", "", nil))
	time.Sleep(100 * time.Millisecond)

	if events := emitter.getEvents(); len(events) != 1 {
		t.Errorf("expected 1 event (context.Background used), got %d", len(events))
	}
}

func TestEmitAsync_ErrorHandling(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: context.DeadlineExceeded}

	// Should not panic on error
	EmitAsync(emitter, context.Background(), NewEvent(KindRealtimeState, "test", "", "", nil))
	time.Sleep(100 * time.Millisecond)
}

func TestEmitAsync_ConcurrentAccess(t *testing.T) {
	emitter := &mockEventEmitter{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			EmitAsync(emitter, context.Background(), NewEvent(KindAlertReceived, "test", "", "", nil))
		}()
	}
	wg.Wait()
	time.Sleep(200 * time.Millisecond)

	if events := emitter.getEvents(); len(events) != 10 {
		t.Errorf("expected 10 events, got %d", len(events))
	}
}

func TestNewEvent_UnmarshallablePayloadDropped(t *testing.T) {
	ev := NewEvent(KindExportWritten, "test", "", "", func() {})
	if ev.Payload != nil {
		t.Errorf("Payload = %s, want nil", ev.Payload)
	}
	if ev.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMultiEmitter(t *testing.T) {
	a := &mockEventEmitter{}
	b := &mockEventEmitter{emitErr: errors.New("kafka down")}
	c := &mockEventEmitter{}
	m := MultiEmitter{a, nil, b, c}

	err := m.Emit(context.Background(), NewEvent(KindCriticalAlert, "relay", "", "", nil))
	if err == nil || err.Error() != "kafka down" {
		t.Errorf("Emit error = %v, want kafka down", err)
	}
	for i, e := range []*mockEventEmitter{a, b, c} {
		if len(e.getEvents()) != 1 {
			t.Errorf("emitter %d got %d events, want 1", i, len(e.getEvents()))
		}
	}
}
