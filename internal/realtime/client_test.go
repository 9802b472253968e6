package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"

	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
)

var errClosed = errors.New("use of closed connection")

func encodeFrame(f *frame.Frame) []byte {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func connectedFrame() *frame.Frame {
	return frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0")
}

func errorFrame(msg string) *frame.Frame {
	return frame.New(frame.ERROR, frame.Message, msg)
}

func messageFrame(dest, body string) *frame.Frame {
	f := frame.New(frame.MESSAGE, frame.Destination, dest, frame.MessageId, "m-1", frame.Subscription, "sub-1")
	f.Body = []byte(body)
	return f
}

// fakeConn answers CONNECT with reply and records every frame the client writes.
type fakeConn struct {
	reply *frame.Frame

	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []*frame.Frame
}

func newFakeConn(reply *frame.Frame) *fakeConn {
	return &fakeConn{reply: reply, in: make(chan []byte, 32), closed: make(chan struct{})}
}

func (f *fakeConn) push(fr *frame.Frame) { f.in <- encodeFrame(fr) }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-f.in:
		return websocket.TextMessage, b, nil
	case <-f.closed:
		return 0, nil, errClosed
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-f.closed:
		return errClosed
	default:
	}
	frames, err := decodeFrames(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.written = append(f.written, frames...)
	f.mu.Unlock()
	for _, fr := range frames {
		if fr.Command == frame.CONNECT && f.reply != nil {
			f.push(f.reply)
		}
	}
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeConn) frames(command string) []*frame.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*frame.Frame
	for _, fr := range f.written {
		if fr.Command == command {
			out = append(out, fr)
		}
	}
	return out
}

// fakeDialer hands out queued conns, then newConn results, then refuses.
type fakeDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	newConn func() *fakeConn
	dials   int
	urls    []string
	headers []http.Header
}

func (d *fakeDialer) dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.urls = append(d.urls, url)
	d.headers = append(d.headers, header.Clone())
	if len(d.conns) > 0 {
		c := d.conns[0]
		d.conns = d.conns[1:]
		return c, nil
	}
	if d.newConn != nil {
		return d.newConn(), nil
	}
	return nil, errors.New("connection refused")
}

func (d *fakeDialer) queue(c *fakeConn) {
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
}

func (d *fakeDialer) getDials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type staticTokens string

func (s staticTokens) Token(context.Context) string { return string(s) }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	var zero T
	return zero
}

func newTestClient(b *bus.Bus, d *fakeDialer, maxReconnects int) *Client {
	return NewClient(Options{
		Channel:        bus.ChannelData,
		URL:            "ws://monitor.example.com:8082/ws-mqtt/websocket",
		Routes:         DataRoutes(b),
		Tokens:         staticTokens("tok-123"),
		Dial:           d.dial,
		ReconnectDelay: time.Millisecond,
		MaxReconnects:  maxReconnects,
		Bus:            b,
	})
}

func TestClient_ConnectHandshakeAndSubscriptions(t *testing.T) {
	b := bus.New()
	defer b.Close()
	conn := newFakeConn(connectedFrame())
	d := &fakeDialer{conns: []*fakeConn{conn}}
	c := newTestClient(b, d, 5)

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })

	if got := d.headers[0].Get("Authorization"); got != "Bearer tok-123" {
		t.Errorf("dial Authorization = %q, want %q", got, "Bearer tok-123")
	}
	connects := conn.frames(frame.CONNECT)
	if len(connects) != 1 {
		t.Fatalf("CONNECT frames = %d, want 1", len(connects))
	}
	h := connects[0].Header
	if h.Get(frame.AcceptVersion) != "1.2" {
		t.Errorf("accept-version = %q, want 1.2", h.Get(frame.AcceptVersion))
	}
	if h.Get(frame.Host) != "monitor.example.com" {
		t.Errorf("host = %q, want monitor.example.com", h.Get(frame.Host))
	}
	if h.Get("Authorization") != "Bearer tok-123" {
		t.Errorf("CONNECT Authorization = %q", h.Get("Authorization"))
	}
	if h.Get(frame.HeartBeat) != "0,0" {
		t.Errorf("heart-beat = %q, want 0,0", h.Get(frame.HeartBeat))
	}

	subs := conn.frames(frame.SUBSCRIBE)
	want := DataRoutes(b).Destinations()
	if len(subs) != len(want) {
		t.Fatalf("SUBSCRIBE frames = %d, want %d", len(subs), len(want))
	}
	for i, s := range subs {
		if s.Header.Get(frame.Destination) != want[i] {
			t.Errorf("subscription %d destination = %q, want %q", i, s.Header.Get(frame.Destination), want[i])
		}
		if s.Header.Get(frame.Ack) != "auto" {
			t.Errorf("subscription %d ack = %q, want auto", i, s.Header.Get(frame.Ack))
		}
		if !strings.HasPrefix(s.Header.Get(frame.Id), "sub-") {
			t.Errorf("subscription %d id = %q, want sub- prefix", i, s.Header.Get(frame.Id))
		}
	}
}

func TestClient_MalformedMessageDoesNotEndSubscription(t *testing.T) {
	b := bus.New()
	defer b.Close()
	conn := newFakeConn(connectedFrame())
	c := newTestClient(b, &fakeDialer{conns: []*fakeConn{conn}}, 5)

	first := b.Alerts.Subscribe(4)
	second := b.Alerts.Subscribe(4)
	defer first.Cancel()
	defer second.Cancel()

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })

	conn.push(messageFrame(TopicAlerts, `{"id":1,"message":`))
	conn.push(messageFrame("/topic/unknown", `{}`))
	conn.push(messageFrame(TopicAlerts, `{"id":2,"severity":"danger","message":"Vent violent","parameter":"bogus"}`))

	for _, sub := range []*bus.Subscription[alertdomain.Alert]{first, second} {
		a := receive(t, sub.C())
		if a.ID != 2 {
			t.Errorf("alert id = %d, want 2", a.ID)
		}
		if a.Parameter != "" {
			t.Errorf("parameter = %q, want dropped", a.Parameter)
		}
		if a.Type != alertdomain.TypeWeather {
			t.Errorf("type = %q, want derived weather", a.Type)
		}
	}
	if c.State() != StateConnected {
		t.Errorf("State = %s, want CONNECTED", c.State())
	}
}

func TestClient_GivesUpAfterMaxReconnects(t *testing.T) {
	b := bus.New()
	defer b.Close()
	events := b.Connection.Subscribe(64)
	defer events.Cancel()
	d := &fakeDialer{}
	c := newTestClient(b, d, 5)

	c.Connect(context.Background())

	var reconnecting int
	for {
		ev := receive(t, events.C())
		if ev.State == string(StateReconnecting) {
			reconnecting++
		}
		if ev.GaveUp {
			if ev.State != string(StateDisconnected) {
				t.Errorf("give-up event state = %s, want DISCONNECTED", ev.State)
			}
			break
		}
	}
	if reconnecting != 5 {
		t.Errorf("RECONNECTING events = %d, want 5", reconnecting)
	}
	if c.State() != StateDisconnected {
		t.Errorf("State = %s, want DISCONNECTED", c.State())
	}
	if d.getDials() != 6 {
		t.Errorf("dials = %d, want 6 (initial + 5 reconnects)", d.getDials())
	}
	time.Sleep(20 * time.Millisecond)
	if d.getDials() != 6 {
		t.Errorf("dials = %d after give-up, want no further attempts", d.getDials())
	}

	d.queue(newFakeConn(connectedFrame()))
	c.Reconnect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED after manual reconnect", func() bool { return c.State() == StateConnected })
	if c.GaveUp() || c.Attempts() != 0 {
		t.Errorf("GaveUp = %v, Attempts = %d, want reset", c.GaveUp(), c.Attempts())
	}
}

func TestClient_AuthErrorRetriesOutsideBudget(t *testing.T) {
	b := bus.New()
	defer b.Close()
	good := newFakeConn(connectedFrame())
	d := &fakeDialer{conns: []*fakeConn{newFakeConn(errorFrame("401 Unauthorized")), good}}
	c := newTestClient(b, d, 0)

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })

	if d.getDials() != 2 {
		t.Errorf("dials = %d, want 2", d.getDials())
	}
	if c.Attempts() != 0 || c.GaveUp() {
		t.Errorf("Attempts = %d, GaveUp = %v, want 0/false", c.Attempts(), c.GaveUp())
	}
}

func TestClient_BrokerErrorCountsAgainstBudget(t *testing.T) {
	b := bus.New()
	defer b.Close()
	d := &fakeDialer{conns: []*fakeConn{newFakeConn(errorFrame("Bad destination"))}}
	c := newTestClient(b, d, 0)

	c.Connect(context.Background())
	eventually(t, "give up", c.GaveUp)
	if d.getDials() != 1 {
		t.Errorf("dials = %d, want 1", d.getDials())
	}
}

func TestClient_DroppedConnectionReconnects(t *testing.T) {
	b := bus.New()
	defer b.Close()
	first := newFakeConn(connectedFrame())
	second := newFakeConn(connectedFrame())
	d := &fakeDialer{conns: []*fakeConn{first, second}}
	c := newTestClient(b, d, 5)

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "first CONNECTED", func() bool { return c.State() == StateConnected })

	first.Close()
	eventually(t, "second dial", func() bool { return d.getDials() == 2 })
	eventually(t, "CONNECTED again", func() bool { return c.State() == StateConnected && c.Attempts() == 0 })
	if len(second.frames(frame.SUBSCRIBE)) == 0 {
		t.Error("second connection should resubscribe")
	}
}

func TestClient_ConnectIsIdempotent(t *testing.T) {
	b := bus.New()
	defer b.Close()
	d := &fakeDialer{conns: []*fakeConn{newFakeConn(connectedFrame())}}
	c := newTestClient(b, d, 5)

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })
	c.Connect(context.Background())
	c.Connect(context.Background())
	time.Sleep(10 * time.Millisecond)
	if d.getDials() != 1 {
		t.Errorf("dials = %d, want 1", d.getDials())
	}
}

func TestClient_Send(t *testing.T) {
	b := bus.New()
	defer b.Close()
	conn := newFakeConn(connectedFrame())
	c := newTestClient(b, &fakeDialer{conns: []*fakeConn{conn}}, 5)

	if err := c.Send("/app/ping", map[string]string{"a": "b"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send before connect = %v, want ErrNotConnected", err)
	}

	c.Connect(context.Background())
	defer c.Disconnect()
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })

	if err := c.Send("/app/ping", map[string]string{"a": "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sends := conn.frames(frame.SEND)
	if len(sends) != 1 {
		t.Fatalf("SEND frames = %d, want 1", len(sends))
	}
	if sends[0].Header.Get(frame.Destination) != "/app/ping" {
		t.Errorf("destination = %q", sends[0].Header.Get(frame.Destination))
	}
	if sends[0].Header.Get(frame.ContentType) != "application/json" {
		t.Errorf("content-type = %q", sends[0].Header.Get(frame.ContentType))
	}
	var body map[string]string
	if err := json.Unmarshal(sends[0].Body, &body); err != nil || body["a"] != "b" {
		t.Errorf("body = %q (%v)", sends[0].Body, err)
	}
}

func TestClient_Disconnect(t *testing.T) {
	b := bus.New()
	defer b.Close()
	conn := newFakeConn(connectedFrame())
	d := &fakeDialer{conns: []*fakeConn{conn}}
	c := newTestClient(b, d, 5)

	c.Connect(context.Background())
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })
	c.Disconnect()

	if c.State() != StateDisconnected {
		t.Errorf("State = %s, want DISCONNECTED", c.State())
	}
	if len(conn.frames(frame.DISCONNECT)) != 1 {
		t.Error("DISCONNECT frame not sent")
	}
	if !conn.isClosed() {
		t.Error("connection not closed")
	}
	if c.GaveUp() {
		t.Error("explicit disconnect is not a give-up")
	}
	time.Sleep(10 * time.Millisecond)
	if d.getDials() != 1 {
		t.Errorf("dials = %d after disconnect, want 1", d.getDials())
	}
	c.Disconnect()
}

func TestClient_ContextCancelStops(t *testing.T) {
	b := bus.New()
	defer b.Close()
	c := newTestClient(b, &fakeDialer{conns: []*fakeConn{newFakeConn(connectedFrame())}}, 5)

	ctx, cancel := context.WithCancel(context.Background())
	c.Connect(ctx)
	eventually(t, "CONNECTED", func() bool { return c.State() == StateConnected })
	cancel()
	eventually(t, "DISCONNECTED", func() bool { return c.State() == StateDisconnected })
}

func TestNegotiate(t *testing.T) {
	testCases := []struct {
		name         string
		offer        time.Duration
		server       string
		wantOut      time.Duration
		wantIncoming time.Duration
	}{
		{"disabled locally", 0, "5000,5000", 0, 0},
		{"server disabled", 10 * time.Second, "0,0", 0, 0},
		{"server slower", 10 * time.Second, "20000,15000", 15 * time.Second, 20 * time.Second},
		{"server faster", 10 * time.Second, "4000,4000", 10 * time.Second, 10 * time.Second},
		{"send only", 10 * time.Second, "0,4000", 10 * time.Second, 0},
		{"missing header", 10 * time.Second, "", 0, 0},
		{"garbage", 10 * time.Second, "a,b", 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, in := negotiate(tc.offer, tc.server)
			if out != tc.wantOut {
				t.Errorf("outgoing = %v, want %v", out, tc.wantOut)
			}
			if in != tc.wantIncoming {
				t.Errorf("incoming = %v, want %v", in, tc.wantIncoming)
			}
		})
	}
}

func TestFrameError(t *testing.T) {
	if err := frameError(errorFrame("401 Unauthorized")); !errors.Is(err, ErrAuth) {
		t.Errorf("401 error = %v, want ErrAuth", err)
	}
	if err := frameError(errorFrame("Invalid destination")); !errors.Is(err, ErrBroker) {
		t.Errorf("other error = %v, want ErrBroker", err)
	}
	f := frame.New(frame.ERROR)
	f.Body = []byte("token expired (401)")
	if err := frameError(f); !errors.Is(err, ErrAuth) {
		t.Errorf("body 401 error = %v, want ErrAuth", err)
	}
}
