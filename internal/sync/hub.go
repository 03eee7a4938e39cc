package sync

import (
	"encoding/json"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 2 * time.Second

// Hub fans listing and contact events out to the admin consoles connected
// over TCP or WebSocket. A TCP subscriber may narrow its stream to event
// types with a given prefix.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]string
	wsClients map[*websocket.Conn]struct{}
	sent      uint64
	byType    map[string]uint64
}

type Stats struct {
	TCPClients int               `json:"tcp_clients"`
	WSClients  int               `json:"ws_clients"`
	Sent       uint64            `json:"events_sent"`
	ByType     map[string]uint64 `json:"events_by_type"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]string),
		wsClients: make(map[*websocket.Conn]struct{}),
		byType:    make(map[string]uint64),
	}
}

// Add registers a TCP subscriber that receives every event.
func (h *Hub) Add(conn net.Conn) {
	h.Subscribe(conn, "")
}

// Subscribe sets the event type prefix for conn, registering it if needed.
// An empty prefix means everything.
func (h *Hub) Subscribe(conn net.Conn, prefix string) {
	h.mu.Lock()
	h.clients[conn] = strings.TrimSpace(prefix)
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.wsClients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish wraps data in an Event and broadcasts it.
func (h *Hub) Publish(eventType string, data any) {
	h.broadcast(Event{Type: eventType, At: time.Now().UTC(), Data: data})
}

// broadcast writes ev as one JSON line to every interested client. Clients
// that fail a write are dropped.
func (h *Hub) broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[sync] marshal %s event: %v", ev.Type, err)
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, prefix := range h.clients {
		if !strings.HasPrefix(ev.Type, prefix) {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.Write(b); err != nil {
			log.Printf("[sync] dropping tcp client %s: %v", c.RemoteAddr(), err)
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
	h.sent++
	h.byType[ev.Type]++
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	byType := make(map[string]uint64, len(h.byType))
	for k, v := range h.byType {
		byType[k] = v
	}
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
		Sent:       h.sent,
		ByType:     byType,
	}
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
}

// welcome greets a TCP subscriber. It must run before Add so no broadcast
// line can interleave with it.
func (h *Hub) welcome(conn net.Conn) error {
	b, _ := json.Marshal(welcome{Type: "welcome", Transport: "tcp", Clients: h.Stats().TCPClients + 1})
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := conn.Write(append(b, '\n'))
	return err
}

// welcomeWS is the WebSocket counterpart of welcome, with the same rule.
func (h *Hub) welcomeWS(ws *websocket.Conn) error {
	b, _ := json.Marshal(welcome{Type: "welcome", Transport: "websocket", Clients: h.Stats().WSClients + 1})
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteMessage(websocket.TextMessage, append(b, '\n'))
}
