// Package realtime is the STOMP-over-websocket client for the backend's push channels. Each Client
// owns one connection, decodes subscribed destinations into the bus and reconnects with a fixed
// delay until its attempt budget runs out.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"envmonitor/console/internal/bus"
	"envmonitor/console/internal/telemetry"
)

// State is the lifecycle state of one channel.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateReconnecting State = "RECONNECTING"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	// ErrAuth is an ERROR frame whose message mentions 401.
	ErrAuth = errors.New("realtime: authentication rejected")
	// ErrBroker is any other ERROR frame.
	ErrBroker = errors.New("realtime: broker error")
	// ErrSessionExpired ends the loop without a give-up; the session is over.
	ErrSessionExpired = errors.New("realtime: session expired")
)

const (
	DefaultReconnectDelay = 5 * time.Second
	DefaultMaxReconnects  = 5
	DefaultHeartbeat      = 10 * time.Second
)

const eventSource = "realtime"

// TokenSource supplies the bearer token attached at connect time.
type TokenSource interface {
	Token(ctx context.Context) string
}

// ExpiringTokenSource reports expiry without side effects. The loop reads it through Peek and calls
// Token only after it has detached itself, since Token may clear the session and disconnect us.
type ExpiringTokenSource interface {
	TokenSource
	Peek() (token string, expired bool)
}

// Options configure a Client.
type Options struct {
	// Channel names the channel family in logs and connection events.
	Channel string
	URL     string
	Routes  *Routes
	// Tokens may be nil for anonymous connections.
	Tokens TokenSource
	// Dial defaults to WebsocketDialer.
	Dial           Dialer
	ReconnectDelay time.Duration
	// MaxReconnects is the number of reconnect attempts after a failure; 0 gives up immediately.
	MaxReconnects int
	// Heartbeat is offered in both directions; 0 disables heart-beating.
	Heartbeat time.Duration
	// Bus receives connection events on its Connection topic; may be nil.
	Bus     *bus.Bus
	Emitter telemetry.EventEmitter
}

// Client is one STOMP connection. Safe for concurrent use.
type Client struct {
	opts Options

	mu       sync.Mutex
	state    State
	attempts int
	gaveUp   bool
	cancel   context.CancelFunc
	done     chan struct{}
	conn     Conn

	writeMu sync.Mutex
}

// NewClient returns a disconnected client.
func NewClient(opts Options) *Client {
	if opts.Routes == nil {
		opts.Routes = NewRoutes()
	}
	if opts.Dial == nil {
		opts.Dial = WebsocketDialer()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.MaxReconnects < 0 {
		opts.MaxReconnects = 0
	}
	if opts.Heartbeat < 0 {
		opts.Heartbeat = 0
	}
	return &Client{opts: opts, state: StateDisconnected}
}

// Connect starts the connection loop. It is a no-op unless the client is DISCONNECTED. The loop
// stops when ctx is cancelled, on Disconnect, or after the reconnect budget is spent.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.attempts = 0
	c.gaveUp = false
	c.state = StateConnecting
	c.mu.Unlock()

	c.transition(StateConnecting, nil)
	go c.run(runCtx, done)
}

// Disconnect sends DISCONNECT when connected, stops the loop and waits for it to exit.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, done, conn := c.cancel, c.done, c.conn
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if conn != nil {
		if err := c.write(conn, frame.New(frame.DISCONNECT)); err != nil {
			log.Printf("realtime: %s: disconnect frame: %v", c.opts.Channel, err)
		}
	}
	if cancel != nil {
		cancel()
		<-done
	}
}

// Reconnect is the manual retry: it drops any current connection, resets the attempt counter and
// connects again.
func (c *Client) Reconnect(ctx context.Context) {
	c.Disconnect()
	c.Connect(ctx)
}

// Send publishes v as a JSON SEND frame to destination.
func (c *Client) Send(destination string, v any) error {
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: encode %s: %w", destination, err)
	}
	f := frame.New(frame.SEND, frame.Destination, destination, frame.ContentType, "application/json")
	f.Body = body
	return c.write(conn, f)
}

// State returns the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// GaveUp reports whether the last loop ended because the reconnect budget was spent.
func (c *Client) GaveUp() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gaveUp
}

// Attempts returns the consecutive reconnect attempts since the last successful connect.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Channel returns the channel family name.
func (c *Client) Channel() string { return c.opts.Channel }

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			c.transition(StateDisconnected, nil)
			return
		}
		if errors.Is(err, ErrSessionExpired) {
			c.expire(done)
			return
		}
		if errors.Is(err, ErrAuth) {
			log.Printf("realtime: %s: %v, retrying in %s", c.opts.Channel, err, c.opts.ReconnectDelay)
			c.transition(StateReconnecting, err)
			if !sleep(ctx, c.opts.ReconnectDelay) {
				c.transition(StateDisconnected, nil)
				return
			}
			continue
		}

		c.mu.Lock()
		if c.attempts >= c.opts.MaxReconnects {
			c.gaveUp = true
			c.mu.Unlock()
			log.Printf("realtime: %s: giving up after %d reconnect attempts: %v", c.opts.Channel, c.opts.MaxReconnects, err)
			c.transition(StateDisconnected, err)
			return
		}
		c.attempts++
		attempt := c.attempts
		c.mu.Unlock()

		log.Printf("realtime: %s: %v, reconnecting (%d/%d)", c.opts.Channel, err, attempt, c.opts.MaxReconnects)
		c.transition(StateReconnecting, err)
		if !sleep(ctx, c.opts.ReconnectDelay) {
			c.transition(StateDisconnected, nil)
			return
		}
	}
}

// expire detaches the loop from the client, stops it and lets the token source clear the session.
func (c *Client) expire(done chan struct{}) {
	c.mu.Lock()
	cancel := c.cancel
	if c.done == done {
		c.cancel, c.done = nil, nil
	} else {
		cancel = nil
	}
	c.mu.Unlock()

	log.Printf("realtime: %s: session expired, disconnecting", c.opts.Channel)
	c.transition(StateDisconnected, ErrSessionExpired)
	if cancel != nil {
		cancel()
	}
	c.opts.Tokens.Token(context.Background())
}

func (c *Client) token(ctx context.Context) (string, error) {
	switch ts := c.opts.Tokens.(type) {
	case nil:
		return "", nil
	case ExpiringTokenSource:
		token, expired := ts.Peek()
		if expired {
			return "", ErrSessionExpired
		}
		return token, nil
	default:
		return ts.Token(ctx), nil
	}
}

// session runs one connection until it fails or ctx is cancelled.
func (c *Client) session(ctx context.Context) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, err := c.opts.Dial(ctx, c.opts.URL, header)
	if err != nil {
		return fmt.Errorf("realtime: dial %s: %w", c.opts.URL, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	hb := c.opts.Heartbeat.Milliseconds()
	connect := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2",
		frame.Host, hostOf(c.opts.URL),
		frame.HeartBeat, fmt.Sprintf("%d,%d", hb, hb))
	if token != "" {
		connect.Header.Add("Authorization", "Bearer "+token)
	}
	if err := c.write(conn, connect); err != nil {
		return fmt.Errorf("realtime: connect frame: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	connected, err := awaitConnected(conn)
	if err != nil {
		return err
	}
	outgoing, incoming := negotiate(c.opts.Heartbeat, connected.Header.Get(frame.HeartBeat))

	for _, dest := range c.opts.Routes.Destinations() {
		sub := frame.New(frame.SUBSCRIBE,
			frame.Id, "sub-"+uuid.NewString(),
			frame.Destination, dest,
			frame.Ack, "auto")
		if err := c.write(conn, sub); err != nil {
			return fmt.Errorf("realtime: subscribe %s: %w", dest, err)
		}
	}

	c.mu.Lock()
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()
	c.transition(StateConnected, nil)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	if outgoing > 0 {
		go c.heartbeat(hbCtx, conn, outgoing)
	}
	return c.readLoop(conn, incoming)
}

func awaitConnected(conn Conn) (*frame.Frame, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("realtime: await CONNECTED: %w", err)
		}
		frames, err := decodeFrames(data)
		if err != nil {
			return nil, fmt.Errorf("realtime: await CONNECTED: %w", err)
		}
		for _, f := range frames {
			switch f.Command {
			case frame.CONNECTED:
				return f, nil
			case frame.ERROR:
				return nil, frameError(f)
			default:
				return nil, fmt.Errorf("realtime: unexpected %s before CONNECTED", f.Command)
			}
		}
	}
}

func (c *Client) readLoop(conn Conn, incoming time.Duration) error {
	for {
		if incoming > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(2 * incoming))
		} else {
			_ = conn.SetReadDeadline(time.Time{})
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("realtime: read: %w", err)
		}
		frames, err := decodeFrames(data)
		if err != nil {
			log.Printf("realtime: %s: dropping malformed frame: %v", c.opts.Channel, err)
		}
		for _, f := range frames {
			switch f.Command {
			case frame.MESSAGE:
				dest := f.Header.Get(frame.Destination)
				if err := c.opts.Routes.Dispatch(dest, f.Body); err != nil {
					log.Printf("realtime: %s: dropping message: %v", c.opts.Channel, err)
				}
			case frame.ERROR:
				return frameError(f)
			}
		}
	}
}

func (c *Client) heartbeat(ctx context.Context, conn Conn, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.writeMu.Lock()
			err := conn.WriteMessage(websocket.TextMessage, []byte("\n"))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) write(conn Conn, f *frame.Frame) error {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, buf.Bytes())
}

func (c *Client) transition(s State, cause error) {
	c.mu.Lock()
	c.state = s
	ev := bus.ConnectionEvent{Channel: c.opts.Channel, State: string(s), Attempt: c.attempts, GaveUp: c.gaveUp}
	c.mu.Unlock()
	if cause != nil {
		ev.Err = cause.Error()
	}
	if c.opts.Bus != nil {
		c.opts.Bus.Connection.Publish(ev)
	}
	telemetry.EmitAsync(c.opts.Emitter, context.Background(),
		telemetry.NewEvent(telemetry.KindRealtimeState, eventSource, "", c.opts.Channel, ev))
}

// decodeFrames splits one websocket message into frames. Heart-beats are skipped.
func decodeFrames(data []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(data))
	var out []*frame.Frame
	for {
		f, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
}

func frameError(f *frame.Frame) error {
	msg := f.Header.Get(frame.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(f.Body))
	}
	if strings.Contains(msg, "401") {
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	}
	return fmt.Errorf("%w: %s", ErrBroker, msg)
}

// negotiate applies the STOMP heart-beat rules to our offer and the server's "sx,sy" reply.
func negotiate(offer time.Duration, server string) (outgoing, incoming time.Duration) {
	if offer <= 0 {
		return 0, 0
	}
	sx, sy := parseHeartBeat(server)
	if sy > 0 {
		outgoing = max(offer, sy)
	}
	if sx > 0 {
		incoming = max(offer, sx)
	}
	return outgoing, incoming
}

func parseHeartBeat(v string) (sx, sy time.Duration) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return 0, 0
	}
	x, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || x < 0 || y < 0 {
		return 0, 0
	}
	return time.Duration(x) * time.Millisecond, time.Duration(y) * time.Millisecond
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "localhost"
	}
	return u.Hostname()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
