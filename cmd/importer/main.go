package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/importer"
	"storefront/internal/logging"
	categoryrepo "storefront/internal/repository/category"
	productrepo "storefront/internal/repository/product"
	categorysvc "storefront/internal/service/category"
	productsvc "storefront/internal/service/product"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to catalog CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), cfg, filePath, logger); err != nil {
		os.Exit(logging.Fail(logger, "import failed", err))
	}
}

func run(ctx context.Context, cfg config.Config, filePath string, logger *zap.Logger) error {
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f,
		productsvc.New(productrepo.NewPostgres(pool, logger)),
		categorysvc.New(categoryrepo.NewPostgres(pool)),
		logger,
	)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		return fmt.Errorf("imported %d products before failing: %w", count, err)
	}
	logger.Info("import finished",
		zap.Int("products", count),
		zap.String("file", filePath),
		zap.Duration("took", time.Since(start).Truncate(time.Millisecond)),
	)
	return nil
}
