package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const defaultBaseURL = "http://localhost:8080"

func main() {
	global := flag.NewFlagSet("propertyhub", flag.ExitOnError)
	baseURL := global.String("api", envOr("PROPERTYHUB_API", defaultBaseURL), "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "session file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	a := &api{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   *baseURL,
		tokenPath: *tokenPath,
	}

	var err error
	switch cmd {
	case "auth":
		err = handleAuth(ctx, a, sub, rest)
	case "property":
		err = handleProperty(ctx, a, sub, rest)
	case "reference":
		err = handleReference(ctx, a, sub, rest)
	case "events":
		err = handleEvents(a, sub, rest)
	case "notify":
		err = handleNotify(a, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func handleAuth(ctx context.Context, a *api, sub string, args []string) error {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			return fmt.Errorf("email and password are required")
		}

		var resp session
		if err := a.public(ctx, http.MethodPost, "/auth/login", nil, map[string]string{"email": *email, "password": *password}, &resp); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveSession(a.tokenPath, resp); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *username == "" || *email == "" || *password == "" {
			return fmt.Errorf("username, email, and password are required")
		}

		var resp session
		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		if err := a.public(ctx, http.MethodPost, "/auth/register", nil, payload, &resp); err != nil {
			return fmt.Errorf("register failed: %w", err)
		}
		if err := saveSession(a.tokenPath, resp); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Println("registered as admin and logged in")
	case "change-password":
		fs := flag.NewFlagSet("auth change-password", flag.ExitOnError)
		current := fs.String("current", "", "current password")
		next := fs.String("new", "", "new password")
		_ = fs.Parse(args)
		if *current == "" || *next == "" {
			return fmt.Errorf("current and new password are required")
		}

		payload := map[string]string{"old_password": *current, "new_password": *next}
		if err := a.call(ctx, http.MethodPost, "/auth/change-password", nil, payload, nil); err != nil {
			return fmt.Errorf("change password failed: %w", err)
		}
		// every session is invalidated, so the stored one is useless now
		if err := clearSession(a.tokenPath); err != nil {
			return err
		}
		fmt.Println("password changed, please login again")
	case "whoami":
		var resp map[string]any
		if err := a.call(ctx, http.MethodGet, "/users/me", nil, nil, &resp); err != nil {
			return err
		}
		printJSON(resp)
	case "logout":
		// best effort: the server revokes refresh tokens, the local file goes regardless
		_ = a.call(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
		if err := clearSession(a.tokenPath); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("logged out")
	default:
		return fmt.Errorf("usage: propertyhub auth <login|register|change-password|whoami|logout>")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printUsage() {
	fmt.Println("propertyhub [-api URL] [-token PATH] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|change-password|whoami|logout")
	fmt.Println("  property list|show|create|update|delete|preview|export")
	fmt.Println("  reference types|statuses|locations|ancestry")
	fmt.Println("  events ws|tcp")
	fmt.Println("  notify subscribe")
}
