package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"eeg-data-sharing/internal/adapters/storage/postgres"
	"eeg-data-sharing/internal/config"
	"eeg-data-sharing/internal/jobs"
	"eeg-data-sharing/internal/platform/lock"
	"eeg-data-sharing/internal/platform/logger"
	"eeg-data-sharing/internal/router"

	"github.com/hibiken/asynq"
)

// El worker corre el reaper fuera del proceso HTTP: asynq agenda la tarea
// y el lock de redis evita barridos simultáneos con la API.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("config error", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName + "-worker",
	})

	if err := run(cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped with error", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	if cfg.DBDSN == "" || cfg.RedisAddr == "" {
		return errors.New("worker: DB_DSN and REDIS_ADDR are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}

	rdb, err := lock.Open(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	svcs := router.NewServices(router.Options{DB: db, Logger: log}.WithDefaults())
	sweep := jobs.NewSweepJob(svcs.Reaper, lock.NewRedis(rdb), cfg.ReaperLockTTL, log)

	w, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    log,
		Sweep:     sweep,
		SweepSpec: cfg.ReaperSchedule,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
