package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visitrome-concierge/internal/config"
	"visitrome-concierge/internal/identity"
	"visitrome-concierge/internal/logger"
	"visitrome-concierge/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg := logger.New(cfg.LogMode, cfg.LogFile)
	defer lg.Sync()

	ctx := context.Background()
	registry, err := identity.OpenRegistry(ctx, identity.Options{
		Backend:     cfg.ClientIDStore,
		FilePath:    cfg.ClientIDFile,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
		RedisTTL:    server.CookieMaxAge,
	}, lg)
	if err != nil {
		lg.Fatal("failed to open client id registry", "store", cfg.ClientIDStore, "error", err)
	}
	ids := identity.NewManager(registry, lg)
	defer ids.Close()

	s := server.NewServer(cfg, nil, ids, lg)
	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		lg.Info(fmt.Sprintf("concierge server listening on %s", addr), "upstream", cfg.APIBaseURL, "client_id_store", cfg.ClientIDStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", "error", err)
	}
	lg.Info("server stopped")
}
