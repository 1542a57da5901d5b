package services

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn is the part of *websocket.Conn the hub needs.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type WSClient struct {
	Owner string
	Conn  wsConn

	writeMu sync.Mutex
}

// Write serialises writes; gorilla connections allow one concurrent writer.
func (c *WSClient) Write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.Owner] == nil {
		h.clients[c.Owner] = make(map[*WSClient]struct{})
	}
	h.clients[c.Owner][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.Owner]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.Owner)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Clients counts the open connections of owner.
func (h *RealtimeHub) Clients(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// Publish sends payload as JSON to every connection of owner.
func (h *RealtimeHub) Publish(owner string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients[owner]))
	for c := range h.clients[owner] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Write(websocket.TextMessage, msg); err != nil {
			h.Unregister(c)
		}
	}
}
