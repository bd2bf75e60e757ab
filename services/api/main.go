package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/02loveslollipop/bixi-station-insights/services/api/config"
	"github.com/02loveslollipop/bixi-station-insights/services/api/db"
	httpserver "github.com/02loveslollipop/bixi-station-insights/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
	}
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		log.Printf("warning: database not reachable yet: %v", err)
	}
	pingCancel()

	srv := httpserver.New(cfg, store)
	log.Printf("BIXI snapshot API listening on %s (latest cache ttl=%s, auth=%v)", cfg.ListenAddr(), cfg.CacheTTL, cfg.BearerToken != "")

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
