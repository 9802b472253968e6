package realtime

import (
	"context"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
	"envmonitor/console/internal/telemetry"
)

// Manager owns the data channel and the notification channel. It satisfies session.Disconnector.
type Manager struct {
	data          *Client
	notifications *Client
}

// ManagerOption customizes both channels of a Manager.
type ManagerOption func(*Options)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) ManagerOption {
	return func(o *Options) { o.Dial = d }
}

// WithEmitter sends connection state events to emitter.
func WithEmitter(e telemetry.EventEmitter) ManagerOption {
	return func(o *Options) { o.Emitter = e }
}

// NewManager builds both channels from cfg. Decoded traffic and connection events go to b. The
// notification channel is skipped when cfg.NotificationsURL is empty.
func NewManager(cfg *config.Config, b *bus.Bus, tokens TokenSource, opts ...ManagerOption) *Manager {
	base := Options{
		Tokens:         tokens,
		Bus:            b,
		ReconnectDelay: cfg.ReconnectDelay(),
		MaxReconnects:  cfg.RealtimeMaxReconnects,
		Heartbeat:      cfg.HeartbeatInterval(),
	}
	for _, o := range opts {
		o(&base)
	}

	data := base
	data.Channel = bus.ChannelData
	data.URL = cfg.RealtimeURL
	data.Routes = DataRoutes(b)
	m := &Manager{data: NewClient(data)}

	if cfg.NotificationsURL != "" {
		n := base
		n.Channel = bus.ChannelNotifications
		n.URL = cfg.NotificationsURL
		n.Routes = NotificationRoutes(b)
		m.notifications = NewClient(n)
	}
	return m
}

// Connect starts both channels. Already running channels are left alone.
func (m *Manager) Connect(ctx context.Context) {
	m.data.Connect(ctx)
	if m.notifications != nil {
		m.notifications.Connect(ctx)
	}
}

// Disconnect stops both channels.
func (m *Manager) Disconnect() {
	m.data.Disconnect()
	if m.notifications != nil {
		m.notifications.Disconnect()
	}
}

// Reconnect is the manual retry for both channels.
func (m *Manager) Reconnect(ctx context.Context) {
	m.data.Reconnect(ctx)
	if m.notifications != nil {
		m.notifications.Reconnect(ctx)
	}
}

// Data returns the data channel client.
func (m *Manager) Data() *Client { return m.data }

// Notifications returns the notification channel client, or nil when disabled.
func (m *Manager) Notifications() *Client { return m.notifications }

// Send publishes on the data channel.
func (m *Manager) Send(destination string, v any) error {
	return m.data.Send(destination, v)
}
