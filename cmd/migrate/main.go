package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/migrate"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("migrate")

	if err := run(context.Background(), cfg.DBConnString, *down, logger); err != nil {
		os.Exit(logging.Fail(logger, "migrate failed", err))
	}
}

func run(ctx context.Context, dsn string, down bool, logger *zap.Logger) error {
	if down {
		if err := migrate.Reset(ctx, dsn); err != nil {
			return fmt.Errorf("roll back migrations: %w", err)
		}
		logger.Info("migrations rolled back")
		return nil
	}

	version, err := migrate.Apply(ctx, dsn)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("migrations applied", zap.Uint("version", version))
	return nil
}
