package realtime

import (
	"context"
	"sort"
	"testing"
	"time"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/config"
	"envmonitor/console/internal/security"
	"envmonitor/console/internal/session"
	"envmonitor/console/internal/session/domain"
	"envmonitor/console/internal/storage"
)

func TestManager_BothChannels(t *testing.T) {
	b := bus.New()
	defer b.Close()
	d := &fakeDialer{newConn: func() *fakeConn { return newFakeConn(connectedFrame()) }}
	cfg := &config.Config{
		RealtimeURL:            "ws://localhost:8082/ws-mqtt/websocket",
		NotificationsURL:       "ws://localhost:8082/api/ws-notifications/websocket",
		RealtimeReconnectDelay: "10ms",
		RealtimeMaxReconnects:  5,
	}
	m := NewManager(cfg, b, staticTokens("t"), WithDialer(d.dial))

	m.Connect(context.Background())
	eventually(t, "both CONNECTED", func() bool {
		return m.Data().State() == StateConnected && m.Notifications().State() == StateConnected
	})
	m.Connect(context.Background())
	if d.getDials() != 2 {
		t.Errorf("dials = %d, want 2", d.getDials())
	}

	d.mu.Lock()
	urls := append([]string(nil), d.urls...)
	d.mu.Unlock()
	sort.Strings(urls)
	if urls[0] != cfg.NotificationsURL || urls[1] != cfg.RealtimeURL {
		t.Errorf("dialed = %v", urls)
	}
	if m.Data().Channel() != bus.ChannelData || m.Notifications().Channel() != bus.ChannelNotifications {
		t.Errorf("channels = %q, %q", m.Data().Channel(), m.Notifications().Channel())
	}

	m.Disconnect()
	if m.Data().State() != StateDisconnected || m.Notifications().State() != StateDisconnected {
		t.Errorf("states = %s, %s, want both DISCONNECTED", m.Data().State(), m.Notifications().State())
	}
	if err := m.Send("/app/x", 1); err == nil {
		t.Error("Send after Disconnect should fail")
	}
}

func TestManager_NotificationChannelOptional(t *testing.T) {
	b := bus.New()
	defer b.Close()
	cfg := &config.Config{RealtimeURL: "ws://localhost/ws"}
	m := NewManager(cfg, b, nil, WithDialer((&fakeDialer{}).dial))
	if m.Notifications() != nil {
		t.Error("notification channel should be disabled without a URL")
	}
	m.Disconnect()
}

func TestManager_SessionExpiryDisconnectsAndRetryRecovers(t *testing.T) {
	b := bus.New()
	defer b.Close()
	ctx := context.Background()

	store := storage.NewMemoryStore()
	holder := session.NewHolder(store, b.AuthState, nil)
	tok, err := security.NewTestToken("1", "USER", time.Now().Add(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("NewTestToken: %v", err)
	}
	if err := holder.Establish(ctx, tok, domain.User{ID: 1, Username: "alice", Role: "USER"}); err != nil {
		t.Fatalf("Establish: %v", err)
	}

	d := &fakeDialer{}
	cfg := &config.Config{
		RealtimeURL:            "ws://localhost:8082/ws-mqtt/websocket",
		NotificationsURL:       "ws://localhost:8082/api/ws-notifications/websocket",
		RealtimeReconnectDelay: "20ms",
		RealtimeMaxReconnects:  1000,
	}
	m := NewManager(cfg, b, holder, WithDialer(d.dial))
	holder.OnClear(m)
	defer m.Disconnect()

	m.Connect(ctx)
	eventually(t, "both RECONNECTING", func() bool {
		return m.Data().State() == StateReconnecting && m.Notifications().State() == StateReconnecting
	})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if m.Data().State() == StateDisconnected && m.Notifications().State() == StateDisconnected {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if m.Data().State() != StateDisconnected || m.Notifications().State() != StateDisconnected {
		t.Fatalf("states = %s, %s, want both DISCONNECTED after expiry", m.Data().State(), m.Notifications().State())
	}
	if m.Data().GaveUp() || m.Notifications().GaveUp() {
		t.Error("session expiry is not a give-up")
	}
	if tok, _ := holder.Peek(); tok != "" {
		t.Error("expired session should be cleared")
	}
	if _, ok, _ := store.Get(ctx, storage.KeyAuthToken); ok {
		t.Error("expired token should be removed from the store")
	}

	d.mu.Lock()
	d.newConn = func() *fakeConn { return newFakeConn(connectedFrame()) }
	d.mu.Unlock()
	m.Reconnect(ctx)
	eventually(t, "both CONNECTED after retry", func() bool {
		return m.Data().State() == StateConnected && m.Notifications().State() == StateConnected
	})

	d.mu.Lock()
	last := d.headers[len(d.headers)-1]
	d.mu.Unlock()
	if got := last.Get("Authorization"); got != "" {
		t.Errorf("Authorization after sign-out = %q, want empty", got)
	}
}
