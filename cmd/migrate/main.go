package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"fmt"
	"log"
	"os"

	"docuflow/internal/shared/config"
	"docuflow/internal/shared/storage/db"
	"docuflow/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	telemetry.Setup(cfg.LogLevel, cfg.LogPretty)

	if err := run(context.Background(), cfg); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.completed", nil)
}

func run(ctx context.Context, cfg config.Config) error {
	opts := db.OptionsFromEnv(db.DefaultCLIOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sqlDB.Close()

	return db.RunMigrations(ctx, sqlDB)
}
