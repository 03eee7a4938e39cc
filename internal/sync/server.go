package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
)

// SubscribeRequest is the only line a TCP subscriber may send. It replaces
// the subscriber's event type filter, e.g. {"type":"subscribe","prefix":"property."}.
type SubscribeRequest struct {
	Type   string `json:"type"`
	Prefix string `json:"prefix"`
}

// Server accepts line-oriented TCP subscribers for the hub.
type Server struct {
	Addr string
	Hub  *Hub

	mu sync.Mutex
	ln net.Listener
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Listen binds the address. Run calls it when the server is not bound yet.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

func (s *Server) Run() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		addr, err := s.Listen()
		if err != nil {
			return err
		}
		log.Printf("[tcp-sync] listening on %s", addr)
		s.mu.Lock()
		ln = s.ln
		s.mu.Unlock()
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		if err := s.Hub.welcome(conn); err != nil {
			_ = conn.Close()
			continue
		}
		s.Hub.Add(conn)
		log.Printf("[tcp-sync] client connected: %s", conn.RemoteAddr())
		go s.serve(conn)
	}
}

func (s *Server) serve(c net.Conn) {
	defer func() {
		s.Hub.Remove(c)
		log.Printf("[tcp-sync] client disconnected: %s", c.RemoteAddr())
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		var req SubscribeRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil || req.Type != "subscribe" {
			continue
		}
		s.Hub.Subscribe(c, req.Prefix)
		log.Printf("[tcp-sync] %s subscribed to %q", c.RemoteAddr(), req.Prefix)
	}
}

// Close stops accepting new subscribers.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
