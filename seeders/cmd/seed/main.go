package main

import (
	"context"
	"flag"
	"os"

	"service-dispatch/migrations"
	"service-dispatch/pkg/config"
	"service-dispatch/pkg/database/postgresql"
	applogger "service-dispatch/pkg/logger"
	"service-dispatch/seeders"

	"go.uber.org/zap"
)

func main() {
	runCatalog := flag.Bool("catalog", false, "seed the service type catalog")
	runDemo := flag.Bool("demo", false, "seed demo technicians")
	runAll := flag.Bool("all", false, "run every seeder (same as -catalog -demo)")
	flag.Parse()

	if !*runCatalog && !*runDemo && !*runAll {
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.New()
	logger := applogger.NewLogger(cfg.Log)
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	dbPool, err := postgresql.ConnectDB(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if _, err := postgresql.Migrate(ctx, cfg.Postgres.DSN, migrations.FS); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	if *runAll || *runCatalog {
		if err := seeders.SeedCatalog(ctx, dbPool, logger); err != nil {
			logger.Fatal("catalog seeding failed", zap.Error(err))
		}
	}
	if *runAll || *runDemo {
		if err := seeders.SeedDemoTechnicians(ctx, dbPool, logger); err != nil {
			logger.Fatal("technician seeding failed", zap.Error(err))
		}
	}
	logger.Info("seeding finished")
}
