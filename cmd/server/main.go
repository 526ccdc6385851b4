package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambassador-ledger/config"
	"ambassador-ledger/internal/database"
	"ambassador-ledger/internal/events"
	"ambassador-ledger/internal/logger"
	"ambassador-ledger/internal/router"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Server.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()
	if envErr != nil {
		lg.Info("no .env file loaded", zap.Error(envErr))
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		lg.Fatal("database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}
	if err := database.SeedSettings(db); err != nil {
		lg.Fatal("seed settings", zap.Error(err))
	}

	deps := router.Deps{Publisher: events.NopPublisher{}, Log: lg}
	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			lg.Fatal("nats", zap.Error(err))
		}
		defer pub.Close()
		deps.Publisher = pub
		lg.Info("publishing withdrawal events", zap.String("subject", pub.Subject("*")))
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			lg.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		deps.Redis = rdb
	}

	engine := router.Setup(cfg, db, deps)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		lg.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("listen", zap.Error(err))
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("server shutdown", zap.Error(err))
	}
	lg.Info("server stopped")
}
