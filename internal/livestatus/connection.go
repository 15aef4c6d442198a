package livestatus

import (
	"fmt"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// ConnectionOptions configures a ConnectionManager.
type ConnectionOptions struct {
	URL               string
	KeepaliveInterval time.Duration
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
}

func (o ConnectionOptions) withDefaults() ConnectionOptions {
	if o.KeepaliveInterval <= 0 {
		o.KeepaliveInterval = time.Duration(domain.DefaultKeepaliveIntervalSec) * time.Second
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Duration(domain.DefaultReconnectBaseMs) * time.Millisecond
	}
	if o.ReconnectMax <= 0 {
		o.ReconnectMax = time.Duration(domain.DefaultReconnectMaxMs) * time.Millisecond
	}
	return o
}

// BackoffDelay returns min(base*2^attempts, max).
func BackoffDelay(attempts int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// ConnectionManager owns at most one push channel at a time and keeps it
// alive: keep-alive frames while open, exponential backoff reconnects after
// every failure, with no attempt limit.
//
// All methods must be called on the scheduler loop.
type ConnectionManager struct {
	sched     domain.Scheduler
	dialer    domain.PushDialer
	logger    domain.Logger
	channel   domain.PushChannel
	reconnect domain.Timer
	keepalive domain.Timer
	onState   func(domain.ConnectionState)
	onMessage func([]byte)
	opts      ConnectionOptions
	state     domain.ConnectionState
	attempts  int
	gen       uint64 // identifies the current channel; stale callbacks carry an older value
	inert     bool
}

// NewConnectionManager creates a manager in the closed state.
func NewConnectionManager(sched domain.Scheduler, dialer domain.PushDialer, logger domain.Logger, opts ConnectionOptions, onState func(domain.ConnectionState), onMessage func([]byte)) *ConnectionManager {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &ConnectionManager{
		sched:     sched,
		dialer:    dialer,
		logger:    logger,
		opts:      opts.withDefaults(),
		onState:   onState,
		onMessage: onMessage,
		state:     domain.ConnClosed,
	}
}

// State returns the current connection state.
func (m *ConnectionManager) State() domain.ConnectionState {
	return m.state
}

// Attempts returns the number of reconnects scheduled since the last open.
func (m *ConnectionManager) Attempts() int {
	return m.attempts
}

// Connect opens a channel unless one is open or connecting, or the manager
// has been torn down.
func (m *ConnectionManager) Connect() {
	if m.inert || m.state != domain.ConnClosed {
		return
	}

	m.gen++
	gen := m.gen
	m.setState(domain.ConnConnecting)
	m.logger.Debug("", "push", "connecting to "+m.opts.URL)

	m.channel = m.dialer.Open(m.opts.URL, domain.PushHandlers{
		OnOpen: func() {
			m.sched.Post(func() { m.handleOpen(gen) })
		},
		OnMessage: func(payload []byte) {
			m.sched.Post(func() { m.handleMessage(gen, payload) })
		},
		OnClose: func(err error) {
			m.sched.Post(func() { m.handleClose(gen, err) })
		},
	})
}

// Teardown stops every timer, closes the live channel and makes the
// manager inert. Safe to call at any point, including mid-dial.
func (m *ConnectionManager) Teardown() {
	if m.inert {
		return
	}
	m.inert = true
	if m.reconnect != nil {
		m.reconnect.Stop()
		m.reconnect = nil
	}
	m.stopKeepalive()
	m.gen++
	if m.channel != nil {
		ch := m.channel
		m.channel = nil
		if err := ch.Close(); err != nil {
			m.logger.Debug("", "push", "close on teardown: "+err.Error())
		}
	}
	m.state = domain.ConnClosed
}

func (m *ConnectionManager) handleOpen(gen uint64) {
	if m.inert || gen != m.gen {
		return
	}
	m.attempts = 0
	m.setState(domain.ConnOpen)
	m.logger.Info("", "push", "connected")
	m.startKeepalive(gen)
}

func (m *ConnectionManager) handleMessage(gen uint64, payload []byte) {
	if m.inert || gen != m.gen {
		return
	}
	if m.onMessage != nil {
		m.onMessage(payload)
	}
}

func (m *ConnectionManager) handleClose(gen uint64, err error) {
	if m.inert || gen != m.gen {
		return
	}
	// Later callbacks from this channel are stale.
	m.gen++
	m.channel = nil
	m.stopKeepalive()
	m.setState(domain.ConnClosed)
	if err != nil {
		m.logger.Warn("", "push", "connection lost: "+err.Error())
	} else {
		m.logger.Info("", "push", "connection closed")
	}
	m.scheduleReconnect()
}

func (m *ConnectionManager) scheduleReconnect() {
	if m.inert || m.reconnect != nil {
		return
	}
	delay := BackoffDelay(m.attempts, m.opts.ReconnectBase, m.opts.ReconnectMax)
	m.attempts++
	m.logger.Info("", "push", fmt.Sprintf("reconnect attempt %d in %s", m.attempts, delay))
	m.reconnect = m.sched.AfterFunc(delay, func() {
		m.reconnect = nil
		if m.inert {
			return
		}
		m.Connect()
	})
}

func (m *ConnectionManager) startKeepalive(gen uint64) {
	m.stopKeepalive()
	m.keepalive = m.sched.AfterFunc(m.opts.KeepaliveInterval, func() {
		m.keepalive = nil
		if m.inert || gen != m.gen || m.state != domain.ConnOpen || m.channel == nil {
			return
		}
		if err := m.channel.Send([]byte(KeepaliveToken)); err != nil {
			m.logger.Warn("", "push", "keep-alive failed: "+err.Error())
		}
		m.startKeepalive(gen)
	})
}

func (m *ConnectionManager) stopKeepalive() {
	if m.keepalive != nil {
		m.keepalive.Stop()
		m.keepalive = nil
	}
}

func (m *ConnectionManager) setState(s domain.ConnectionState) {
	if m.state == s {
		return
	}
	m.state = s
	if m.onState != nil {
		m.onState(s)
	}
}
