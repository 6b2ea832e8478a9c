package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// statsWSHub pushes a fresh StatsSnapshot to every connected websocket client
// on a fixed interval. Clients that fail a write are dropped.
type statsWSHub struct {
	mgr *SessionManager

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const statsWSPushInterval = 2 * time.Second

func newStatsWSHub(mgr *SessionManager) *statsWSHub {
	hub := &statsWSHub{
		mgr:     mgr,
		clients: make(map[*websocket.Conn]bool),
	}
	go hub.run()
	return hub
}

func (h *statsWSHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws upgrade failed", "error", err)
		return
	}
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Drain and discard reads so the connection's read deadline/control
	// frames are serviced; clients are push-only and never send commands.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *statsWSHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *statsWSHub) run() {
	ticker := time.NewTicker(statsWSPushInterval)
	defer ticker.Stop()
	for range ticker.C {
		h.broadcast()
	}
}

func (h *statsWSHub) broadcast() {
	snap := h.mgr.BuildStatsSnapshot()

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.WriteJSON(snap); err != nil {
			h.drop(c)
		}
	}
}
