package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eeg-data-sharing/internal/adapters/auth/jwt"
	"eeg-data-sharing/internal/adapters/auth/odin"
	"eeg-data-sharing/internal/adapters/storage/postgres"
	"eeg-data-sharing/internal/config"
	"eeg-data-sharing/internal/jobs"
	"eeg-data-sharing/internal/platform/lock"
	"eeg-data-sharing/internal/platform/logger"
	"eeg-data-sharing/internal/ports/auth"
	"eeg-data-sharing/internal/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("config error", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	if zl, ok := log.(*logger.ZapLogger); ok {
		defer func() { _ = zl.Sync() }()
	}

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DBDSN != "" {
		var err error
		db, err = postgres.Open(cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory storage", nil)
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("no auth verifier configured, trusting X-Debug-User-ID", nil)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := router.Options{
		AuthVerifier:    verifier,
		DB:              db,
		Logger:          log,
		Registry:        reg,
		CreateRateLimit: cfg.CreateRateLimit,
		Production:      cfg.IsProduction(),
	}.WithDefaults()
	svcs := router.NewServices(opts)

	var locker jobs.Locker
	if cfg.RedisAddr != "" {
		rdb, err := lock.Open(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedis(rdb)
	}

	sweep := jobs.NewSweepJob(svcs.Reaper, locker, cfg.ReaperLockTTL, log)
	scheduler, err := jobs.NewScheduler(cfg.ReaperSchedule, sweep, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.Mount(opts, svcs),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if scheduler != nil {
		g.Go(func() error {
			if err := scheduler.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

// newVerifier: JWT local primero, Odin como alternativa, nil en dev.
func newVerifier(cfg *config.Config) (auth.AuthVerifier, error) {
	switch {
	case cfg.JWTSecret != "":
		return jwt.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	case cfg.OdinBaseURL != "":
		client, err := odin.NewClient(odin.Config{
			BaseURL: cfg.OdinBaseURL,
			APIKey:  cfg.OdinAPIKey,
			Timeout: 5 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, nil
	}
}
