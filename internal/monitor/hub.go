// Package monitor streams simulation progress to websocket clients.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/MariosKokmo/go-qg/internal/simulation"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 16 // per-client message buffer
)

type client struct {
	conn *websocket.Conn
	send chan simulation.Progress
}

// Hub maintains the set of active clients and broadcasts progress messages
// to them as JSON. Slow clients miss messages rather than stall the run.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	last    *simulation.Progress
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeWs upgrades the request and registers the peer. A new peer first
// receives the latest message, if any.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan simulation.Progress, clientSend)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- *h.last
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.WithFields(log.Fields{"remote": r.RemoteAddr, "clients": n}).Info("monitor client connected")

	go h.writePump(c)
	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for p := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(&p); err != nil {
			log.WithError(err).Debug("monitor write failed")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Broadcast queues p for every client.
func (h *Hub) Broadcast(p simulation.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &p
	for c := range h.clients {
		select {
		case c.send <- p:
		default:
			log.WithField("step", p.Step).Debug("monitor client is slow, dropping message")
		}
	}
}

// Clients returns the number of connected peers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts every message from updates until the channel is closed or
// ctx is done.
func (h *Hub) Run(ctx context.Context, updates <-chan simulation.Progress) {
	for {
		select {
		case p, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(p)
		case <-ctx.Done():
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	cs := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		cs = append(cs, c)
	}
	h.mu.Unlock()
	for _, c := range cs {
		h.remove(c)
	}
}

// Server exposes a Hub on /ws.
type Server struct {
	hub *Hub
	srv *http.Server
}

func NewServer(addr string, hub *Hub) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWs)
	return &Server{hub: hub, srv: &http.Server{Addr: addr, Handler: mux}}
}

// Serve blocks until Shutdown is called or the listener fails.
func (s *Server) Serve() error {
	log.WithField("addr", s.srv.Addr).Info("monitor listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown disconnects the clients and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}
