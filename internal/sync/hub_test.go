package sync

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

func TestPublishReachesTCPClients(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	defer client.Close()
	hub.Add(server)

	done := make(chan Event, 1)
	go func() {
		line, err := bufio.NewReader(client).ReadBytes('\n')
		if err != nil {
			return
		}
		var ev Event
		if json.Unmarshal(line, &ev) == nil {
			done <- ev
		}
	}()

	hub.Publish(PropertyCreated, PropertyChange{ID: 7, Code: "AT7S"})

	select {
	case ev := <-done:
		if ev.Type != PropertyCreated {
			t.Fatalf("type = %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	if s := hub.Stats(); s.TCPClients != 1 || s.Sent != 1 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestBroadcastDropsDeadClients(t *testing.T) {
	hub := NewHub()

	server, client := net.Pipe()
	hub.Add(server)
	client.Close()

	hub.Publish(PropertyDeleted, PropertyChange{ID: 1})

	if s := hub.Stats(); s.TCPClients != 0 {
		t.Fatalf("dead client kept: %+v", s)
	}
}

func TestSubscribePrefixFiltersEvents(t *testing.T) {
	hub := NewHub()
	srv := NewServer("127.0.0.1:0", hub)
	addr, err := srv.Listen()
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Run() }()
	defer srv.Close()

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	r := bufio.NewReader(conn)

	if _, err := r.ReadBytes('\n'); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if _, err := conn.Write([]byte(`{"type":"subscribe","prefix":"contact."}` + "\n")); err != nil {
		t.Fatal(err)
	}

	// the subscribe line is handled asynchronously; wait until the hub sees it
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.Lock()
		var prefix string
		for _, p := range hub.clients {
			prefix = p
		}
		hub.mu.Unlock()
		if prefix == "contact." {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(PropertyCreated, PropertyChange{ID: 1})
	hub.Publish(ContactReceived, map[string]int64{"id": 9})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != ContactReceived {
		t.Fatalf("got %q, want only contact events", ev.Type)
	}

	s := hub.Stats()
	if s.ByType[PropertyCreated] != 1 || s.ByType[ContactReceived] != 1 {
		t.Fatalf("by type = %v", s.ByType)
	}
}
