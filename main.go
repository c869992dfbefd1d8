package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/quickly-poll/cliparse"
	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/events"
	"github.com/danielhkuo/quickly-poll/live"
	"github.com/danielhkuo/quickly-poll/logging"
	"github.com/danielhkuo/quickly-poll/router"
	"github.com/danielhkuo/quickly-poll/store"
	"github.com/danielhkuo/quickly-poll/store/redisstore"
)

func main() {
	// A missing .env is normal outside local development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Could not read .env", "error", err)
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: first usable profile wins, resolved on first request
	selector := store.NewSelector(cfg.Backends.Profiles(), map[store.Kind]store.Opener{
		store.KindRedis:    redisstore.Opener,
		store.KindPostgres: db.Opener,
		store.KindSQLite:   db.Opener,
	}, log)
	defer selector.Close()

	repo := store.NewRepository(selector, store.NewMemory(), log)

	// Live updates
	hub := live.NewHub(log)
	go hub.Run(ctx)

	// Vote events to RabbitMQ when configured
	var publisher events.Publisher
	if cfg.RabbitMQURL != "" {
		p, err := events.DialAMQP(ctx, cfg.RabbitMQURL, cfg.RabbitMQQueue, log)
		if err != nil {
			log.Warn("vote events disabled", "error", err)
		} else {
			publisher = p
		}
	}
	dispatcher := events.NewDispatcher(hub, publisher, log)
	defer dispatcher.Close()

	// Create server
	server := http.Server{
		Handler:           router.NewRouter(repo, dispatcher, hub, cfg),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	// Start server
	log.Info("Listening", "port", cfg.Port, "env", cfg.Env, "profiles", len(cfg.Backends.Profiles()))
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("Server closed", "error", err)
	} else {
		log.Info("Server closed")
	}
}
