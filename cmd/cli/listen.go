package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"propertyhub/internal/notify"
	synchub "propertyhub/internal/sync"
)

func handleEvents(a *api, sub string, args []string) error {
	switch sub {
	case "ws":
		s, err := readSession(a.tokenPath)
		if err != nil {
			return fmt.Errorf("not logged in: %w", err)
		}
		wsURL, err := websocketURL(a.baseURL, "/ws")
		if err != nil {
			return fmt.Errorf("invalid api url: %w", err)
		}

		header := http.Header{}
		header.Set("Authorization", "Bearer "+s.Token)
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err != nil {
			return fmt.Errorf("ws dial failed: %w", err)
		}
		defer conn.Close()

		go closeOnInterrupt(func() {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			_ = conn.Close()
		})

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("ws read: %w", err)
			}
			fmt.Println(string(msg))
		}
	case "tcp":
		fs := flag.NewFlagSet("events tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:9090", "TCP sync address")
		prefix := fs.String("type", "", "event type prefix, e.g. property.")
		_ = fs.Parse(args)

		conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
		if err != nil {
			return fmt.Errorf("tcp dial failed: %w", err)
		}
		defer conn.Close()
		if *prefix != "" {
			req, _ := json.Marshal(synchub.SubscribeRequest{Type: "subscribe", Prefix: *prefix})
			if _, err := conn.Write(append(req, '\n')); err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
		}
		go closeOnInterrupt(func() { _ = conn.Close() })

		sc := bufio.NewScanner(conn)
		for sc.Scan() {
			fmt.Println(sc.Text())
		}
		if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("tcp read: %w", err)
		}
		return nil
	default:
		return errors.New("usage: propertyhub events <ws|tcp>")
	}
}

func handleNotify(a *api, sub string, args []string) error {
	if sub != "subscribe" {
		return errors.New("usage: propertyhub notify subscribe [-addr host:port]")
	}
	fs := flag.NewFlagSet("notify subscribe", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:9091", "UDP notify address")
	_ = fs.Parse(args)

	s, err := readSession(a.tokenPath)
	if err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", *addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", *addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return fmt.Errorf("udp dial failed: %w", err)
	}
	defer conn.Close()

	reg, err := json.Marshal(notify.RegisterMessage{Type: notify.RegisterMessageType, Token: s.Token})
	if err != nil {
		return err
	}
	if _, err := conn.Write(reg); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	go closeOnInterrupt(func() { _ = conn.Close() })

	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp read: %w", err)
		}
		fmt.Println(string(buf[:n]))
	}
}

func closeOnInterrupt(closeFn func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	closeFn()
}
