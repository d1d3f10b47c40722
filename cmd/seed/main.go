package main

import (
	"context"
	"os"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("seed")

	if err := run(context.Background(), cfg, logger); err != nil {
		os.Exit(logging.Fail(logger, "seed failed", err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	return seed.Apply(ctx, pool, logger)
}
