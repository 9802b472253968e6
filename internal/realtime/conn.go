package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the message-oriented socket the STOMP client runs over. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn to url with the given handshake headers.
type Dialer func(ctx context.Context, url string, header http.Header) (Conn, error)

// handshakeTimeout bounds the websocket handshake and the wait for CONNECTED.
const handshakeTimeout = 10 * time.Second

// WebsocketDialer dials with gorilla/websocket, offering the v12.stomp sub-protocol.
func WebsocketDialer() Dialer {
	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{"v12.stomp", "v11.stomp", "v10.stomp"},
	}
	return func(ctx context.Context, url string, header http.Header) (Conn, error) {
		conn, resp, err := d.DialContext(ctx, url, header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
