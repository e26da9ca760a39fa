package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"docuflow/internal/bootstrap"
	"docuflow/internal/shared/config"
	"docuflow/internal/shared/scheduler"
	"docuflow/internal/shared/telemetry"
	"docuflow/internal/workerproc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	telemetry.Setup(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg); err != nil {
		telemetry.Error("worker.stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("worker.stopped", nil)
}

// run polls until a signal arrives. The scheduler and app are released
// before main decides the exit code.
func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.RoleWorker)
	if err != nil {
		return fmt.Errorf("bootstrap build: %w", err)
	}
	defer app.Close()

	sched, err := newMaintenance(app.Worker, cfg.StaleRecoverySchedule)
	if err != nil {
		return fmt.Errorf("schedule recovery: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Release jobs held by a previous process before polling.
	if _, _, err := app.Worker.RecoverStale(ctx); err != nil {
		telemetry.Error("worker.recovery_failed", map[string]any{"error": err.Error()})
	}
	return app.Worker.Run(ctx)
}

// newMaintenance schedules stale job recovery on schedule.
func newMaintenance(w *workerproc.Worker, schedule string) (*scheduler.Scheduler, error) {
	sched := scheduler.New(telemetry.Logger())
	if err := sched.AddJob(schedule, workerproc.RecoveryJob{Worker: w}); err != nil {
		return nil, fmt.Errorf("add %q: %w", schedule, err)
	}
	return sched, nil
}
