package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	notifdomain "envmonitor/console/internal/notification/domain"
	sensordomain "envmonitor/console/internal/sensor/domain"
)

// Data channel destinations.
const (
	TopicAirQuality         = "/topic/airquality"
	TopicWeather            = "/topic/weather"
	TopicAlerts             = "/topic/alerts"
	TopicCriticalAlerts     = "/topic/critical-alerts"
	TopicAlertSummary       = "/topic/alert-summary"
	TopicNotifications      = "/topic/notifications"
	TopicAdminNotifications = "/topic/admin/notifications"
	TopicSensors            = "/topic/sensors/+"

	// TopicUserNotifications is only served on the notification channel.
	TopicUserNotifications = "/user/topic/notifications"
)

var errInvalidJSON = errors.New("invalid JSON payload")

// Handler decodes one message body and publishes it.
type Handler func(body []byte) error

// Routes maps STOMP destinations to handlers. A destination ending in "/+" also matches any single
// trailing segment.
type Routes struct {
	order    []string
	handlers map[string]Handler
}

// NewRoutes returns an empty route table.
func NewRoutes() *Routes {
	return &Routes{handlers: make(map[string]Handler)}
}

// Handle registers h for destination. Registration order is subscription order.
func (r *Routes) Handle(destination string, h Handler) *Routes {
	if _, ok := r.handlers[destination]; !ok {
		r.order = append(r.order, destination)
	}
	r.handlers[destination] = h
	return r
}

// Destinations returns the registered destinations in registration order.
func (r *Routes) Destinations() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the handler serving destination.
func (r *Routes) Lookup(destination string) (Handler, bool) {
	if h, ok := r.handlers[destination]; ok {
		return h, true
	}
	i := strings.LastIndex(destination, "/")
	if i < 0 {
		return nil, false
	}
	h, ok := r.handlers[destination[:i]+"/+"]
	return h, ok
}

// Dispatch decodes body with the handler for destination.
func (r *Routes) Dispatch(destination string, body []byte) error {
	h, ok := r.Lookup(destination)
	if !ok {
		return fmt.Errorf("realtime: no route for %s", destination)
	}
	if err := h(body); err != nil {
		return fmt.Errorf("realtime: decode %s: %w", destination, err)
	}
	return nil
}

func publishJSON[T any](t *bus.Topic[T], prepare func(*T)) Handler {
	return func(body []byte) error {
		var v T
		if err := json.Unmarshal(body, &v); err != nil {
			return err
		}
		if prepare != nil {
			prepare(&v)
		}
		t.Publish(v)
		return nil
	}
}

// DataRoutes decodes every data channel topic into b.
func DataRoutes(b *bus.Bus) *Routes {
	return NewRoutes().
		Handle(TopicAirQuality, publishJSON[airdomain.Reading](b.AirQuality, nil)).
		Handle(TopicWeather, func(body []byte) error {
			if !json.Valid(body) {
				return errInvalidJSON
			}
			b.Weather.Publish(json.RawMessage(append([]byte(nil), body...)))
			return nil
		}).
		Handle(TopicAlerts, publishJSON[alertdomain.Alert](b.Alerts, (*alertdomain.Alert).Normalize)).
		Handle(TopicCriticalAlerts, publishJSON[alertdomain.Alert](b.CriticalAlerts, (*alertdomain.Alert).Normalize)).
		Handle(TopicAlertSummary, publishJSON[alertdomain.Summary](b.AlertSummary, nil)).
		Handle(TopicNotifications, publishJSON[notifdomain.Notification](b.Notifications, nil)).
		Handle(TopicAdminNotifications, publishJSON[notifdomain.UserEvent](b.AdminNotifications, nil)).
		Handle(TopicSensors, publishJSON[sensordomain.Update](b.SensorUpdates, nil))
}

// NotificationRoutes decodes the notification channel topics into b.
func NotificationRoutes(b *bus.Bus) *Routes {
	h := publishJSON[notifdomain.Notification](b.Notifications, nil)
	return NewRoutes().
		Handle(TopicNotifications, h).
		Handle(TopicUserNotifications, h)
}
