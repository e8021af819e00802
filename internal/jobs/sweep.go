package jobs

import (
	"context"
	"errors"
	"time"

	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/platform/lock"
	"eeg-data-sharing/internal/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault es la cola de los jobs de mantenimiento.
	QueueDefault = "default"
	// TaskSharingSweep dispara un barrido de expiración.
	TaskSharingSweep = "sharing:sweep"
)

type Sweeper interface {
	Sweep(ctx context.Context) (sharing.SweepResult, error)
}

// Locker es opcional; sin él cada réplica barre por su cuenta.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// SweepJob envuelve al reaper con el lock y el logging comunes a cron y asynq.
type SweepJob struct {
	sweeper Sweeper
	locker  Locker
	lockTTL time.Duration
	log     logger.Logger
}

func NewSweepJob(sweeper Sweeper, locker Locker, lockTTL time.Duration, log logger.Logger) *SweepJob {
	if log == nil {
		log = logger.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &SweepJob{sweeper: sweeper, locker: locker, lockTTL: lockTTL, log: log}
}

// Run barre una vez. Si otra réplica tiene el lock devuelve ran=false sin error.
func (j *SweepJob) Run(ctx context.Context) (res sharing.SweepResult, ran bool, err error) {
	if j.locker != nil {
		release, err := j.locker.Acquire(ctx, lock.SweepLockKey(), j.lockTTL)
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				j.log.Debug("sharing sweep skipped, lock held elsewhere", nil)
				return sharing.SweepResult{}, false, nil
			}
			return sharing.SweepResult{}, false, err
		}
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				j.log.Warn("sharing sweep lock release failed", map[string]any{"error": rerr})
			}
		}()
	}

	res, err = j.sweeper.Sweep(ctx)
	return res, true, err
}

// NewSweepTask arma la tarea asynq (sin payload).
func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSharingSweep, nil)
}

// Handle procesa TaskSharingSweep.
func (j *SweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	_, _, err := j.Run(ctx)
	return err
}
