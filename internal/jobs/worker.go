package jobs

import (
	"context"
	"errors"
	"time"

	"eeg-data-sharing/internal/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker envuelve el server asynq y, opcionalmente, su scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	log       logger.Logger
}

type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    logger.Logger
	Sweep     *SweepJob
	// SweepSpec registra el barrido en el scheduler de asynq. Vacío => solo on-demand.
	SweepSpec string
}

func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Sweep == nil {
		return nil, errors.New("worker: sweep job required")
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	srvCfg := asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	}
	if zl, ok := log.(*logger.ZapLogger); ok {
		srvCfg.Logger = zl.Zap().Sugar()
	}
	srv := asynq.NewServer(cfg.RedisOpts, srvCfg)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSharingSweep, cfg.Sweep.Handle)

	var scheduler *asynq.Scheduler
	if cfg.SweepSpec != "" {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		// Unique evita encolar dos barridos si el anterior sigue en cola.
		if _, err := scheduler.Register(cfg.SweepSpec, NewSweepTask(),
			asynq.Queue(QueueDefault), asynq.MaxRetry(1), asynq.Unique(time.Minute)); err != nil {
			return nil, err
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, log: log}, nil
}

// Run procesa tareas hasta que ctx se cancele. Start no instala handlers de
// señales: el apagado lo maneja solo ctx.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return err
		}
	}
	w.log.Info("worker started", nil)

	<-ctx.Done()
	if w.scheduler != nil {
		w.scheduler.Shutdown()
	}
	w.server.Shutdown()
	w.log.Info("worker stopped", nil)
	return ctx.Err()
}
