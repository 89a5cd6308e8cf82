package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/campusnest/forum/internal/db"
	"github.com/campusnest/forum/internal/recount"
	"github.com/campusnest/forum/pkg/config"
	"github.com/campusnest/forum/pkg/logging"
	"github.com/campusnest/forum/pkg/telemetry"
)

// recount rebuilds every denormalized counter once and exits. Run it from an
// external scheduler when the API servers have recount_enabled=false.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	if cfg.Database.Driver != config.DriverPostgres {
		logger.Fatal("Recount needs the postgres driver", zap.String("driver", cfg.Database.Driver))
	}

	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	report, err := recount.NewJob(db.NewStore(database), 30*time.Minute).RunOnce(ctx)
	if err != nil {
		logger.Error("Recount failed", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Recount finished", zap.Int64("repaired", report.Total()))
}
