package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	notifdomain "envmonitor/console/internal/notification/domain"
	sensordomain "envmonitor/console/internal/sensor/domain"
	"envmonitor/console/internal/telemetry"
)

type mockEmitter struct {
	mu     sync.Mutex
	events []*telemetry.Event
	err    error
}

func (m *mockEmitter) Emit(ctx context.Context, ev *telemetry.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockEmitter) byKind() map[string]*telemetry.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]*telemetry.Event{}
	for _, ev := range m.events {
		out[ev.Kind] = ev
	}
	return out
}

func TestForward_EmitsOneEventPerTopic(t *testing.T) {
	b := bus.New()
	defer b.Close()
	e := &mockEmitter{}
	release := Forward(context.Background(), b, e)

	b.AirQuality.Publish(airdomain.Reading{AQI: 88})
	b.SensorUpdates.Publish(sensordomain.Update{ID: "s-3", Status: sensordomain.StatusActive})
	b.Alerts.Publish(alertdomain.Alert{ID: 5, Message: "PM2.5 élevé"})
	b.CriticalAlerts.Publish(alertdomain.Alert{Type: alertdomain.TypeAir, Message: "critique"})
	b.Notifications.Publish(notifdomain.Notification{ID: 9, Title: "Nouveau compte"})
	b.Connection.Publish(bus.ConnectionEvent{Channel: bus.ChannelNotifications, State: "connected"})
	release()

	got := e.byKind()
	testCases := []struct {
		kind    string
		subject string
	}{
		{telemetry.KindAirQuality, ""},
		{telemetry.KindSensorUpdate, "s-3"},
		{telemetry.KindAlertReceived, "5"},
		{telemetry.KindCriticalAlert, "air"},
		{telemetry.KindNotification, "9"},
		{telemetry.KindRealtimeState, bus.ChannelNotifications},
	}
	for _, tc := range testCases {
		ev, ok := got[tc.kind]
		if !ok {
			t.Errorf("no %s event emitted", tc.kind)
			continue
		}
		if ev.Source != Source {
			t.Errorf("%s source = %q, want %q", tc.kind, ev.Source, Source)
		}
		if ev.Subject != tc.subject {
			t.Errorf("%s subject = %q, want %q", tc.kind, ev.Subject, tc.subject)
		}
	}

	var r airdomain.Reading
	if err := json.Unmarshal(got[telemetry.KindAirQuality].Payload, &r); err != nil || r.AQI != 88 {
		t.Errorf("air quality payload = %s, %v", got[telemetry.KindAirQuality].Payload, err)
	}
}

func TestForward_EmitErrorKeepsForwarding(t *testing.T) {
	b := bus.New()
	defer b.Close()
	e := &mockEmitter{err: errors.New("broker down")}
	release := Forward(context.Background(), b, e)

	b.Alerts.Publish(alertdomain.Alert{ID: 1})
	b.Alerts.Publish(alertdomain.Alert{ID: 2})
	release()

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.events) != 2 {
		t.Errorf("emitted %d events, want 2", len(e.events))
	}
}

func TestForward_ReleaseUnsubscribes(t *testing.T) {
	b := bus.New()
	defer b.Close()
	release := Forward(context.Background(), b, &mockEmitter{})
	if b.Alerts.Len() != 1 {
		t.Fatalf("Alerts subscribers = %d, want 1", b.Alerts.Len())
	}
	release()
	if b.Alerts.Len() != 0 {
		t.Errorf("Alerts subscribers after release = %d, want 0", b.Alerts.Len())
	}
}
