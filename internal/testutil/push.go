package testutil

import (
	"errors"
	"sync"

	"github.com/runoshun/adr-sync/internal/domain"
)

var _ domain.PushDialer = (*FakePushDialer)(nil)

// FakePushDialer records every channel it opens. Tests drive the channels
// by hand with Accept, Deliver and Drop.
type FakePushDialer struct {
	Channels []*FakePushChannel
	URLs     []string
	mu       sync.Mutex
}

// NewFakePushDialer creates an empty dialer.
func NewFakePushDialer() *FakePushDialer {
	return &FakePushDialer{}
}

// Open records the channel; nothing happens until the test drives it.
func (d *FakePushDialer) Open(url string, h domain.PushHandlers) domain.PushChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := &FakePushChannel{handlers: h}
	d.Channels = append(d.Channels, ch)
	d.URLs = append(d.URLs, url)
	return ch
}

// Count returns the number of channels opened so far.
func (d *FakePushDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Channels)
}

// Last returns the most recently opened channel, or nil.
func (d *FakePushDialer) Last() *FakePushChannel {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Channels) == 0 {
		return nil
	}
	return d.Channels[len(d.Channels)-1]
}

// FakePushChannel is a scripted domain.PushChannel.
// Fields are ordered to minimize memory padding.
type FakePushChannel struct {
	SendErr    error
	handlers   domain.PushHandlers
	sent       [][]byte
	mu         sync.Mutex
	closed     bool
	closeFired bool
}

// Send records the payload.
func (c *FakePushChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrChannelClosed
	}
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

// Close marks the channel closed and fires OnClose if it has not fired.
func (c *FakePushChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.fireClose(nil)
	return nil
}

// Accept simulates a successful handshake.
func (c *FakePushChannel) Accept() {
	if c.handlers.OnOpen != nil {
		c.handlers.OnOpen()
	}
}

// Deliver simulates an inbound frame.
func (c *FakePushChannel) Deliver(payload string) {
	if c.handlers.OnMessage != nil {
		c.handlers.OnMessage([]byte(payload))
	}
}

// Drop simulates a transport failure.
func (c *FakePushChannel) Drop() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.fireClose(errors.New("connection reset"))
}

// RawClose invokes OnClose without the once guard, for tests that need a
// transport reporting an error and then a close for the same channel.
func (c *FakePushChannel) RawClose(err error) {
	if c.handlers.OnClose != nil {
		c.handlers.OnClose(err)
	}
}

func (c *FakePushChannel) fireClose(err error) {
	c.mu.Lock()
	if c.closeFired {
		c.mu.Unlock()
		return
	}
	c.closeFired = true
	c.mu.Unlock()
	if c.handlers.OnClose != nil {
		c.handlers.OnClose(err)
	}
}

// Sent returns a copy of the frames written so far.
func (c *FakePushChannel) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, p := range c.sent {
		out[i] = string(p)
	}
	return out
}

// IsClosed reports whether Close or Drop was called.
func (c *FakePushChannel) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
