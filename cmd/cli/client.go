package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// session is what the cli keeps between invocations.
type session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type api struct {
	client    *http.Client
	baseURL   string
	tokenPath string
}

func (a *api) url(path string, q url.Values) string {
	u := strings.TrimSuffix(a.baseURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, endpoint, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %d %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// call sends an authenticated request. A 401 triggers one refresh attempt
// with the stored refresh token before giving up.
func (a *api) call(ctx context.Context, method, path string, q url.Values, payload, out any) error {
	s, err := readSession(a.tokenPath)
	if err != nil {
		return fmt.Errorf("not logged in: %w", err)
	}
	err = doJSON(ctx, a.client, method, a.url(path, q), s.Token, payload, out)
	if err == nil || s.RefreshToken == "" || !strings.Contains(err.Error(), ": 401 ") {
		return err
	}
	if rerr := a.refresh(ctx, s); rerr != nil {
		return err
	}
	s, _ = readSession(a.tokenPath)
	return doJSON(ctx, a.client, method, a.url(path, q), s.Token, payload, out)
}

func (a *api) refresh(ctx context.Context, s session) error {
	var resp session
	if err := doJSON(ctx, a.client, http.MethodPost, a.url("/auth/refresh", nil), "", map[string]string{"refresh_token": s.RefreshToken}, &resp); err != nil {
		return err
	}
	return saveSession(a.tokenPath, resp)
}

// public sends an unauthenticated request.
func (a *api) public(ctx context.Context, method, path string, q url.Values, payload, out any) error {
	return doJSON(ctx, a.client, method, a.url(path, q), "", payload, out)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.propertyhub-token.json"
	}
	return filepath.Join(home, ".propertyhub", "token.json")
}

func saveSession(path string, s session) error {
	if s.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readSession(path string) (session, error) {
	var s session
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, err
	}
	s.Token = strings.TrimSpace(s.Token)
	if s.Token == "" {
		return s, errors.New("token empty, please login")
	}
	return s, nil
}

func clearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "json: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}
