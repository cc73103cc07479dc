package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/medreg/internal/api"
	"github.com/ignite/medreg/internal/config"
	"github.com/ignite/medreg/internal/ingest"
	"github.com/ignite/medreg/internal/pkg/distlock"
	"github.com/ignite/medreg/internal/pkg/logger"
	"github.com/ignite/medreg/internal/query"
	"github.com/ignite/medreg/internal/store"

	_ "github.com/lib/pq" // PostgreSQL driver
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		logger.Error("no database configured", "hint", "set database.url or DATABASE_URL")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.Error("database unreachable", "error", err.Error())
		os.Exit(1)
	}

	st := store.New(db)
	if err := st.EnsureSchema(context.Background()); err != nil {
		logger.Error("failed to ensure schema", "error", err.Error())
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis unreachable, caching disabled", "addr", cfg.Redis.Addr, "error", err.Error())
			cache = nil
		}
	}

	fetcher := ingest.NewSourceFetcher()
	if cfg.Import.S3Region != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Import.S3Region))
		if err != nil {
			logger.Warn("aws config unavailable, s3 sources disabled", "error", err.Error())
		} else {
			fetcher = fetcher.WithS3(s3.NewFromConfig(awsCfg))
		}
	}

	newLock := func() distlock.DistLock {
		return distlock.New(cache, db, "import", 30*time.Minute)
	}

	svc := query.NewService(st, cache)
	coordinator := ingest.NewCoordinator(st, fetcher, cfg.Import.Workers)
	router := api.NewRouter(api.NewMedicinesAPI(svc, coordinator, newLock))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err.Error())
	}
}
