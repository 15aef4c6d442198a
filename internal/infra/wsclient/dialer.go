// Package wsclient implements domain.PushDialer over WebSocket.
package wsclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/runoshun/adr-sync/internal/domain"
)

var _ domain.PushDialer = (*Dialer)(nil)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
)

// Dialer opens WebSocket push channels.
type Dialer struct {
	ws           *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithHeader adds a request header to every handshake.
func WithHeader(key, value string) Option {
	return func(d *Dialer) { d.header.Add(key, value) }
}

// WithHandshakeTimeout bounds the opening handshake.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(d *Dialer) { d.ws.HandshakeTimeout = timeout }
}

// NewDialer creates a Dialer.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		header:       make(http.Header),
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open dials url in the background and returns immediately.
func (d *Dialer) Open(url string, h domain.PushHandlers) domain.PushChannel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &channel{handlers: h, cancel: cancel, writeTimeout: d.writeTimeout}
	go c.run(ctx, d, url)
	return c
}

// channel is one WebSocket connection.
// Fields are ordered to minimize memory padding.
type channel struct {
	conn         *websocket.Conn
	cancel       context.CancelFunc
	handlers     domain.PushHandlers
	writeTimeout time.Duration
	closeOnce    sync.Once
	mu           sync.Mutex
	writeMu      sync.Mutex
	closed       bool
}

func (c *channel) run(ctx context.Context, d *Dialer, url string) {
	conn, resp, err := d.ws.DialContext(ctx, url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.fireClose(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		c.fireClose(nil)
		return
	}
	c.conn = conn
	c.mu.Unlock()

	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			c.fireClose(err)
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		if c.handlers.OnMessage != nil {
			c.handlers.OnMessage(data)
		}
	}
}

// fireClose reports the end of the channel exactly once. Errors caused by
// a local Close are reported as a clean close.
func (c *channel) fireClose(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.closed || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			err = nil
		}
		c.closed = true
		c.mu.Unlock()
		c.cancel()
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(err)
		}
	})
}

// Send writes a text frame.
func (c *channel) Send(payload []byte) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return domain.ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Close sends a close frame and shuts the connection. A dial still in
// progress is cancelled.
func (c *channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}
