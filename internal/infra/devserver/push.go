package devserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/runoshun/adr-sync/internal/livestatus"
)

const (
	clientBuffer = 64
	writeWait    = 5 * time.Second
)

// handlePush upgrades the request and registers a push subscriber. The
// client's keep-alive frames are read and discarded.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.opts.Logger.Warn("", "devserver", "upgrade: "+err.Error())
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	c.send <- s.queueMessageLocked()
	n := len(s.clients)
	s.mu.Unlock()
	s.opts.Logger.Info("", "devserver", fmt.Sprintf("push client %s connected from %s (%d total)", sessionLabel(r), r.RemoteAddr, n))

	go s.writeLoop(c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if string(data) != livestatus.KeepaliveToken {
			s.opts.Logger.Debug("", "devserver", "ignoring client frame: "+string(data))
		}
	}
	s.drop(c)
}

func sessionLabel(r *http.Request) string {
	if id := r.Header.Get("X-Client-Session"); id != "" {
		return id
	}
	return "anonymous"
}

func (s *Server) writeLoop(c *client) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = c.conn.Close()
			return
		}
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

// broadcast queues payloads for every subscriber. Subscribers whose
// buffer is full are disconnected.
func (s *Server) broadcast(payloads ...[]byte) {
	if len(payloads) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
	payloads:
		for _, p := range payloads {
			select {
			case c.send <- p:
			default:
				delete(s.clients, c)
				close(c.send)
				s.opts.Logger.Warn("", "devserver", "push client too slow; dropped")
				break payloads
			}
		}
	}
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected push subscribers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
