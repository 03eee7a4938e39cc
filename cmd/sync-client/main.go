package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"
	"time"

	synchub "propertyhub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9090", "TCP sync server address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	only := flag.String("type", "", "only print events whose type starts with this prefix (e.g. property.)")
	flag.Parse()

	for {
		if err := run(*addr, *pretty, *only, os.Stdout); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool, only string, out io.Writer) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)
	if only != "" {
		req, _ := json.Marshal(synchub.SubscribeRequest{Type: "subscribe", Prefix: only})
		if _, err := conn.Write(append(req, '\n')); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	return tail(conn, pretty, only, out)
}

// tail copies events from r to out until r ends.
func tail(r io.Reader, pretty bool, only string, out io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()

		var ev synchub.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			// not JSON? print raw
			fmt.Fprintln(out, string(line))
			continue
		}
		if only != "" && !strings.HasPrefix(ev.Type, only) {
			continue
		}

		if !pretty {
			fmt.Fprintln(out, string(line))
			continue
		}
		b, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Fprintln(out, string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
