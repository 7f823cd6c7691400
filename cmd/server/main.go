// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jason-s-yu/assassin/internal/auth"
	"github.com/jason-s-yu/assassin/internal/cache"
	"github.com/jason-s-yu/assassin/internal/config"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/jason-s-yu/assassin/internal/handlers"
	"github.com/jason-s-yu/assassin/internal/notify"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ttl, err := auth.ParseTokenTTL(cfg.TokenExpireTime)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}
	if cfg.PrivateKeyPath != "" {
		err = auth.InitFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, ttl)
	} else {
		logger.Warn("no key files configured, generating an ephemeral signing key")
		err = auth.Init(ttl)
	}
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store database.Store
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using the in-memory store, state is lost on restart")
		store = database.NewMemoryStore()
	default:
		if err := database.RunMigrations(cfg.DSN(), cfg.MigrationsDir); err != nil {
			logger.Fatalf("migrations: %v", err)
		}
		pg, err := database.ConnectDB(ctx, cfg.DSN())
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		store = pg
	}
	defer store.Close()

	var publisher game.Publisher = cache.Nop{}
	if rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
		logger.Warnf("redis unavailable, game events will not be archived: %v", err)
	} else {
		defer rdb.Close()
		publisher = cache.NewPublisher(rdb, cfg.EventQueue)
	}

	hub := notify.NewHub(256, logger)
	engine := game.NewEngine(store, cfg.Game(),
		game.WithNotifier(notify.Multi{hub, notify.LogNotifier{Log: logger}}),
		game.WithPublisher(publisher),
		game.WithLogger(logger),
	)
	defer engine.Close()
	if err := engine.Recover(ctx); err != nil {
		logger.Fatalf("recover timers: %v", err)
	}
	go engine.RunTicker(ctx, cfg.TickInterval)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           handlers.NewServer(engine, hub, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}
