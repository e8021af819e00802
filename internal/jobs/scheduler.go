package jobs

import (
	"context"
	"fmt"
	"strings"

	"eeg-data-sharing/internal/platform/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler corre el barrido dentro del proceso API según REAPER_SCHEDULE.
type Scheduler struct {
	cron *cron.Cron
	log  logger.Logger
}

// NewScheduler valida spec ("@every 5m" o cron de 5 campos). Spec vacío => nil, nil.
func NewScheduler(spec string, job *SweepJob, log logger.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if log == nil {
		log = logger.NewNop()
	}

	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(spec, func() {
		res, ran, err := job.Run(context.Background())
		if err != nil {
			log.Error("scheduled sharing sweep failed", map[string]any{"error": err})
			return
		}
		if ran {
			log.Debug("scheduled sharing sweep done", map[string]any{"expired": res.Expired})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("jobs: reaper schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c, log: log}, nil
}

// Run arranca el cron y bloquea hasta ctx.Done; espera a que termine el barrido en curso.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info("reaper scheduler started", nil)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("reaper scheduler stopped", nil)
	return nil
}

// cronLogger adapta logger.Logger a cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := kvFields(keysAndValues)
	fields["error"] = err
	l.log.Error("cron: "+msg, fields)
}

func kvFields(kv []any) map[string]any {
	out := make(map[string]any, len(kv)/2+1)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out[k] = kv[i+1]
		}
	}
	return out
}
