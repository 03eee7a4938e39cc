package notify

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"testing"
	"time"
)

func TestAudience(t *testing.T) {
	r := NewRegistry()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}
	r.Register(Identity{UserID: "boss", Admin: true}, addr)
	r.Register(Identity{UserID: "a1", TeamID: "east"}, addr)
	r.Register(Identity{UserID: "a2", TeamID: "west"}, addr)
	r.Register(Identity{UserID: ""}, addr)

	tests := []struct {
		team string
		want map[string]bool
	}{
		{"east", map[string]bool{"boss": true, "a1": true}},
		{"west", map[string]bool{"boss": true, "a2": true}},
		{"", map[string]bool{"boss": true}},
	}
	for _, tt := range tests {
		got := map[string]bool{}
		for _, c := range r.Audience(tt.team) {
			got[c.UserID] = true
		}
		if len(got) != len(tt.want) {
			t.Errorf("Audience(%q) = %v, want %v", tt.team, got, tt.want)
			continue
		}
		for id := range tt.want {
			if !got[id] {
				t.Errorf("Audience(%q) missing %s", tt.team, id)
			}
		}
	}
}

func TestRegisterAndBroadcast(t *testing.T) {
	auth := func(token string) (Identity, error) {
		if token != "good" {
			return Identity{}, errors.New("bad token")
		}
		return Identity{UserID: "u1", TeamID: "east"}, nil
	}
	srv := NewServer("127.0.0.1:0", NewRegistry(), auth, log.New(io.Discard, "", 0))

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for srv.LocalAddr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	client, err := net.DialUDP("udp", nil, srv.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))

	reg, _ := json.Marshal(RegisterMessage{Type: RegisterMessageType, Token: "good"})
	if _, err := client.Write(reg); err != nil {
		t.Fatalf("write: %v", err)
	}

	buf := make([]byte, 1024)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	var ack map[string]string
	if err := json.Unmarshal(buf[:n], &ack); err != nil || ack["type"] != RegisteredMessageType {
		t.Fatalf("ack = %s (%v)", buf[:n], err)
	}

	srv.BroadcastContact(ContactMessage{ID: 7, Name: "Somchai", PropertyCode: "AT1R"}, "west")
	srv.BroadcastContact(ContactMessage{ID: 8, Name: "Malee", PropertyCode: "AT2S"}, "east")

	n, err = client.Read(buf)
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var got ContactMessage
	if err := json.Unmarshal(buf[:n], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != ContactMessageType || got.ID != 8 {
		t.Fatalf("got %+v, want contact 8 only", got)
	}
}

func TestParseRegisterMessage(t *testing.T) {
	if _, err := parseRegisterMessage([]byte(`{"type":"register"}`)); err == nil {
		t.Fatal("missing token accepted")
	}
	if _, err := parseRegisterMessage([]byte(`not json`)); err == nil {
		t.Fatal("garbage accepted")
	}
	msg, err := parseRegisterMessage([]byte(`{"type":"register","token":"x"}`))
	if err != nil || msg.Token != "x" {
		t.Fatalf("parse = %+v, %v", msg, err)
	}
}
