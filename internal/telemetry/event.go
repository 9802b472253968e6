package telemetry

import (
	"encoding/json"
	"time"
)

// Event kinds emitted by the console and the relay.
const (
	KindSessionEstablished = "session.established"
	KindSessionCleared     = "session.cleared"
	KindSessionExpired     = "session.expired"
	KindRealtimeState      = "realtime.state"
	KindAlertReceived      = "alert.received"
	KindCriticalAlert      = "alert.critical"
	KindNotification       = "notification.received"
	KindExportWritten      = "export.written"
	KindAdminAction        = "admin.action"
	KindAirQuality         = "airquality.reading"
	KindSensorUpdate       = "sensor.update"
)

// Event is a structured business event. It is the JSON value relayed to Kafka and pushed to Loki.
type Event struct {
	Kind      string          `json:"kind"`
	Source    string          `json:"source,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an event stamped with the current UTC time. payload is marshalled to JSON;
// a payload that cannot be marshalled is dropped.
func NewEvent(kind, source, actor, subject string, payload any) *Event {
	ev := &Event{
		Kind:      kind,
		Source:    source,
		Actor:     actor,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			ev.Payload = b
		}
	}
	return ev
}
