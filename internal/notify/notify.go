package notify

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"sync"
	"time"
)

const (
	RegisterMessageType   = "register"
	RegisteredMessageType = "registered"
	ContactMessageType    = "contact.new"
)

// RegisterMessage is what a staff client sends to start receiving datagrams.
// Token is the client's access token.
type RegisterMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type ContactMessage struct {
	Type         string    `json:"type"`
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PropertyCode string    `json:"property_code,omitempty"`
	At           time.Time `json:"at"`
}

// Identity is who a register token belongs to.
type Identity struct {
	UserID string
	TeamID string
	Admin  bool
}

// Authenticator checks a register token.
type Authenticator func(token string) (Identity, error)

type Client struct {
	Identity
	Addr *net.UDPAddr
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(id Identity, addr *net.UDPAddr) {
	if id.UserID == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[id.UserID] = Client{Identity: id, Addr: addr}
	r.mu.Unlock()
}

func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	delete(r.clients, userID)
	r.mu.Unlock()
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Audience returns the clients allowed to hear about teamID's listings:
// every admin, plus the agents of that team.
func (r *Registry) Audience(teamID string) []Client {
	var out []Client
	for _, c := range r.Snapshot() {
		if c.Admin || (teamID != "" && c.TeamID == teamID) {
			out = append(out, c)
		}
	}
	return out
}

type Server struct {
	addr     string
	registry *Registry
	auth     Authenticator
	logger   *log.Logger

	mu   sync.RWMutex
	conn *net.UDPConn
}

func NewServer(addr string, registry *Registry, auth Authenticator, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{addr: addr, registry: registry, auth: auth, logger: logger}
}

func (s *Server) Run() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	s.logger.Printf("[notify] UDP server listening on %s", conn.LocalAddr())

	buffer := make([]byte, 4096)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			s.logger.Printf("[notify] invalid message from %s: %v", addr, err)
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		if s.auth == nil {
			continue
		}
		id, err := s.auth(msg.Token)
		if err != nil {
			s.logger.Printf("[notify] rejected register from %s: %v", addr, err)
			continue
		}
		s.registry.Register(id, addr)
		s.logger.Printf("[notify] registered %s (%s)", id.UserID, addr)

		ack, _ := json.Marshal(map[string]string{"type": RegisteredMessageType, "user_id": id.UserID})
		_, _ = conn.WriteToUDP(ack, addr)
	}
}

// LocalAddr is the bound address once Run has started, nil before.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// BroadcastContact tells the audience of teamID about a new contact message.
func (s *Server) BroadcastContact(msg ContactMessage, teamID string) {
	s.mu.RLock()
	running := s.conn != nil
	s.mu.RUnlock()
	if !running {
		s.logger.Printf("[notify] UDP server not running")
		return
	}

	msg.Type = ContactMessageType
	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("[notify] marshal broadcast: %v", err)
		return
	}

	for _, client := range s.registry.Audience(teamID) {
		s.sendWithRetry(client, payload)
	}
}

func (s *Server) sendWithRetry(client Client, payload []byte) {
	if err := s.sendOnce(client, payload); err == nil {
		return
	}
	if err := s.sendOnce(client, payload); err != nil {
		s.logger.Printf("[notify] failed to notify %s at %s: %v", client.UserID, client.Addr, err)
		s.registry.Remove(client.UserID)
	}
}

func (s *Server) sendOnce(client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	if msg.Type == "" || msg.Token == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
