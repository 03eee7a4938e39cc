package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestWebsocketURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws"},
		{"https://api.example.com/", "wss://api.example.com/ws"},
	}
	for _, tc := range cases {
		got, err := websocketURL(tc.base, "/ws")
		if err != nil {
			t.Fatalf("%s: %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("websocketURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}
}

func TestCallRefreshesOnUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["refresh_token"] != "r1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "fresh", "refresh_token": "r2"})
		case "/users/me":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"username":"agent"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "token.json")
	if err := saveSession(path, session{Token: "stale", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}
	a := &api{client: srv.Client(), baseURL: srv.URL, tokenPath: path}

	var me map[string]string
	if err := a.call(context.Background(), http.MethodGet, "/users/me", nil, nil, &me); err != nil {
		t.Fatalf("call: %v", err)
	}
	if me["username"] != "agent" {
		t.Fatalf("me = %v", me)
	}

	s, err := readSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Token != "fresh" || s.RefreshToken != "r2" {
		t.Fatalf("session not rotated: %+v", s)
	}
}

func TestDoJSONReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"property code already exists"}`))
	}))
	defer srv.Close()

	err := doJSON(context.Background(), srv.Client(), http.MethodPost, srv.URL+"/staff/properties", "", map[string]string{}, nil)
	if err == nil || !strings.Contains(err.Error(), "409 property code already exists") {
		t.Fatalf("err = %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" Dock, ,Office ")
	if len(got) != 2 || got[0] != "Dock" || got[1] != "Office" {
		t.Fatalf("splitList = %v", got)
	}
}
