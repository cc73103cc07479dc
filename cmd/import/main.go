package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/medreg/internal/config"
	"github.com/ignite/medreg/internal/ingest"
	"github.com/ignite/medreg/internal/pkg/distlock"
	"github.com/ignite/medreg/internal/pkg/logger"
	"github.com/ignite/medreg/internal/store"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// One-shot importer: loads a register snapshot (local path or s3:// URL)
// into the store and prints the outcome as JSON.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	source := flag.String("source", "", "CSV source: local path or s3://bucket/key")
	workers := flag.Int("workers", 0, "override import worker count")
	flag.Parse()

	if *source == "" {
		logger.Error("no source given", "hint", "pass -source <path|s3://bucket/key>")
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}
	if *workers > 0 {
		cfg.Import.Workers = *workers
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	st := store.New(db)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err.Error())
		os.Exit(1)
	}

	fetcher := ingest.NewSourceFetcher()
	if cfg.Import.S3Region != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Import.S3Region))
		if err != nil {
			logger.Warn("aws config unavailable, s3 sources disabled", "error", err.Error())
		} else {
			fetcher = fetcher.WithS3(s3.NewFromConfig(awsCfg))
		}
	}

	lock := distlock.NewPGAdvisoryLock(db, "import")
	ok, err := lock.Acquire(ctx)
	if err != nil {
		logger.Error("failed to acquire import lock", "error", err.Error())
		os.Exit(1)
	}
	if !ok {
		logger.Error("an import is already running")
		os.Exit(1)
	}
	defer lock.Release(ctx)

	coordinator := ingest.NewCoordinator(st, fetcher, cfg.Import.Workers)
	outcome, err := coordinator.ImportSource(ctx, *source)
	if err != nil {
		logger.Error("import aborted", "source", *source, "error", err.Error())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(outcome)

	if outcome.Failed > 0 && outcome.Imported == 0 {
		os.Exit(1)
	}
}
