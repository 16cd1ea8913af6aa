package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora.events/internal/config"
	"agora.events/internal/events"
	"agora.events/internal/httpapi"
	"agora.events/internal/identity"
	"agora.events/internal/obs"
	"agora.events/internal/permissions"
	"agora.events/internal/store/pg"
	"agora.events/internal/tasks"
)

var version = "1.0.0"

func main() {
	obs.Init()
	cfg := config.Load()

	// Connect to Postgres when a DSN is configured; otherwise run with the
	// in-memory store (useful for local development).
	var db *sql.DB
	var eventStore events.Service = events.NewInMemory()
	var cache identity.Cache = identity.NewMemoryCache()
	if cfg.PGDSN != "" {
		var err error
		db, err = pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		eventStore = pg.NewEventStore(db)
		cache = pg.NewUserCache(db)
	}

	runner := tasks.NewBackground(10 * time.Second)
	resolver := identity.NewResolver(
		identity.NewClient(cfg.CoreURL, cfg.CorePort),
		identity.WithCache(cache),
		identity.WithCaching(cfg.EnableUserCaching),
		identity.WithRunner(runner),
	)

	api := httpapi.New(httpapi.Options{
		ReadyProbe: httpapi.ReadyProbe{DB: db},
		Version:    version,
		Resolver:   resolver,
		Events:     eventStore,
		Evaluator:  permissions.NewEvaluator(cfg.BoardCircleID, permissions.OrganizerPolicy{}),
		MediaDir:   cfg.MediaDir,
		RateBurst:  cfg.RateBurst,
		RatePerSec: cfg.RatePerSec,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting events-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	runner.Wait()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
