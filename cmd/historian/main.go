// cmd/historian is an asynchronous service that pops game events from a Redis
// queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/assassin/internal/cache"
	"github.com/jason-s-yu/assassin/internal/config"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/historian"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.RunMigrations(cfg.DSN(), cfg.MigrationsDir); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	pg, err := database.ConnectDB(ctx, cfg.DSN())
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc := historian.New(rdb, pg, historian.Config{
		Queue:      cfg.EventQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
	}, logger)
	svc.Run(ctx)
}
