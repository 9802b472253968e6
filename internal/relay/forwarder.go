// Package relay forwards live bus traffic to a broker as telemetry events.
package relay

import (
	"context"
	"fmt"
	"log"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	notifdomain "envmonitor/console/internal/notification/domain"
	sensordomain "envmonitor/console/internal/sensor/domain"
	"envmonitor/console/internal/telemetry"
)

// Source is the event source reported by the relay.
const Source = "relay"

// Emitter is the sink of relayed events; producer.Producer satisfies it.
type Emitter interface {
	Emit(ctx context.Context, event *telemetry.Event) error
}

// Forward subscribes to the live topics and emits one event per message until release is called.
// Emit errors are logged and the message is dropped.
func Forward(ctx context.Context, b *bus.Bus, e Emitter) (release func()) {
	emit := func(kind, subject string, payload any) {
		if err := e.Emit(ctx, telemetry.NewEvent(kind, Source, "", subject, payload)); err != nil {
			log.Printf("relay: emit %s: %v", kind, err)
		}
	}
	stops := []func(){
		bus.Watch(b.AirQuality, bus.DefaultBuffer, func(r airdomain.Reading) {
			emit(telemetry.KindAirQuality, "", r)
		}),
		bus.Watch(b.SensorUpdates, bus.DefaultBuffer, func(u sensordomain.Update) {
			emit(telemetry.KindSensorUpdate, string(u.ID), u)
		}),
		bus.Watch(b.Alerts, bus.DefaultBuffer, func(al alertdomain.Alert) {
			emit(telemetry.KindAlertReceived, alertSubject(al), al)
		}),
		bus.Watch(b.CriticalAlerts, bus.DefaultBuffer, func(al alertdomain.Alert) {
			emit(telemetry.KindCriticalAlert, alertSubject(al), al)
		}),
		bus.Watch(b.Notifications, bus.DefaultBuffer, func(n notifdomain.Notification) {
			emit(telemetry.KindNotification, fmt.Sprint(n.ID), n)
		}),
		bus.Watch(b.Connection, bus.DefaultBuffer, func(ev bus.ConnectionEvent) {
			emit(telemetry.KindRealtimeState, ev.Channel, ev)
		}),
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func alertSubject(al alertdomain.Alert) string {
	if al.ID == 0 {
		return string(al.Type)
	}
	return fmt.Sprint(al.ID)
}
