package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"propertyhub/internal/auth"
	"propertyhub/internal/normalize"
	"propertyhub/internal/notify"
	"propertyhub/internal/reference"
	synchub "propertyhub/internal/sync"
	"propertyhub/pkg/database"
	"propertyhub/pkg/logging"
	"propertyhub/pkg/utils"
)

func main() {
	cfg := utils.Load()

	logFile, err := logging.Setup(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("log setup failed: %v", err)
	}
	defer logFile.Close()

	dbCfg := database.DefaultConfig()
	if err := database.EnsureDataDir(dbCfg); err != nil {
		log.Fatalf("data dir: %v", err)
	}
	db := database.MustOpenMigrated(dbCfg)
	defer db.Close()

	hub := synchub.NewHub()
	tcpSrv := synchub.NewServer(cfg.Server.TCPAddr, hub)

	tokens := tokenService(cfg.Auth)
	authRepo := auth.NewRepo(db)
	udpSrv := notify.NewServer(cfg.Server.UDPAddr, notify.NewRegistry(), staffAuthenticator(tokens, authRepo), nil)

	names := normalize.NewLiveMatcher(reference.NewRepo(db))
	reloadNames := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := names.Reload(ctx); err != nil {
			log.Printf("[api] reference reload failed: %v", err)
		}
	}
	reloadNames()
	// seed-reference runs out of process; pick up its changes periodically.
	refCron := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := refCron.AddFunc("@every 5m", reloadNames); err != nil {
		log.Fatalf("reference reload schedule: %v", err)
	}
	refCron.Start()
	defer func() { <-refCron.Stop().Done() }()

	router := newRouter(deps{
		DB:       db,
		DBPath:   dbCfg.Path,
		Config:   cfg,
		Hub:      hub,
		Notifier: udpSrv,
		Names:    names,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := udpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("[api] HTTP server listening on %s", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("[api] shutdown signal received: %s", sig)
	case err := <-errCh:
		log.Printf("[api] server error: %v", err)
	}

	log.Println("[api] shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[api] http shutdown error: %v", err)
	}
	if err := tcpSrv.Close(); err != nil {
		log.Printf("[api] tcp shutdown error: %v", err)
	}
	if err := udpSrv.Close(); err != nil {
		log.Printf("[api] udp shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("[api] servers stopped")
}

// staffAuthenticator accepts UDP registrations carrying a live access token.
func staffAuthenticator(tokens auth.TokenService, repo *auth.Repo) notify.Authenticator {
	return func(token string) (notify.Identity, error) {
		claims, err := tokens.Parse(token)
		if err != nil {
			return notify.Identity{}, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := repo.GetTokenVersion(ctx, claims.UserID)
		if err != nil {
			return notify.Identity{}, err
		}
		if v != claims.TokenVersion {
			return notify.Identity{}, auth.ErrTokenInvalid
		}
		return notify.Identity{UserID: claims.UserID, TeamID: claims.TeamID, Admin: claims.IsAdmin()}, nil
	}
}
