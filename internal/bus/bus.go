package bus

import (
	"encoding/json"

	airdomain "envmonitor/console/internal/airquality/domain"
	alertdomain "envmonitor/console/internal/alert/domain"
	notifdomain "envmonitor/console/internal/notification/domain"
	sensordomain "envmonitor/console/internal/sensor/domain"
)

// Channel families of the realtime transport.
const (
	ChannelData          = "data"
	ChannelNotifications = "notifications"
)

// ConnectionEvent reports a realtime state change on one channel family.
type ConnectionEvent struct {
	Channel string `json:"channel"`
	State   string `json:"state"`
	Attempt int    `json:"attempt,omitempty"`
	GaveUp  bool   `json:"gaveUp,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Bus groups the typed topics shared by the realtime client, the MQTT bridge and the view-models.
type Bus struct {
	AirQuality         *Topic[airdomain.Reading]
	Weather            *Topic[json.RawMessage]
	Alerts             *Topic[alertdomain.Alert]
	CriticalAlerts     *Topic[alertdomain.Alert]
	AlertSummary       *Topic[alertdomain.Summary]
	Notifications      *Topic[notifdomain.Notification]
	AdminNotifications *Topic[notifdomain.UserEvent]
	SensorUpdates      *Topic[sensordomain.Update]
	Connection         *Topic[ConnectionEvent]
	AuthState          *Topic[bool]
}

// New returns a bus with every topic open.
func New() *Bus {
	return &Bus{
		AirQuality:         NewTopic[airdomain.Reading]("airquality"),
		Weather:            NewTopic[json.RawMessage]("weather"),
		Alerts:             NewTopic[alertdomain.Alert]("alerts"),
		CriticalAlerts:     NewTopic[alertdomain.Alert]("critical-alerts"),
		AlertSummary:       NewTopic[alertdomain.Summary]("alert-summary"),
		Notifications:      NewTopic[notifdomain.Notification]("notifications"),
		AdminNotifications: NewTopic[notifdomain.UserEvent]("admin-notifications"),
		SensorUpdates:      NewTopic[sensordomain.Update]("sensor-updates"),
		Connection:         NewTopic[ConnectionEvent]("connection"),
		AuthState:          NewTopic[bool]("auth-state"),
	}
}

// Close closes every topic.
func (b *Bus) Close() {
	b.AirQuality.Close()
	b.Weather.Close()
	b.Alerts.Close()
	b.CriticalAlerts.Close()
	b.AlertSummary.Close()
	b.Notifications.Close()
	b.AdminNotifications.Close()
	b.SensorUpdates.Close()
	b.Connection.Close()
	b.AuthState.Close()
}
