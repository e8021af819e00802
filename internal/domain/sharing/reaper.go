package sharing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SweepResult resume una corrida del reaper.
type SweepResult struct {
	Scanned    int `json:"scanned"`
	Expired    int `json:"expired"`
	Reconciled int `json:"reconciled"`
	Skipped    int `json:"skipped"`
}

// Reaper mueve a expired las entradas pending/accepted cuyo deadline pasó.
// Es idempotente: una segunda corrida sin cambios de reloj no hace nada.
type Reaper struct {
	ledger *Service
}

func NewReaper(ledger *Service) *Reaper {
	return &Reaper{ledger: ledger}
}

// Sweep recorre las entradas vencidas. Si pierde una carrera contra Accept/Revoke
// (CAS fallido) la entrada se saltea; otros errores se acumulan y no cortan el barrido.
func (rp *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	s := rp.ledger
	// now decide qué vence; started mide la duración real para las métricas.
	now := s.now()
	started := time.Now()

	var res SweepResult
	items, err := s.repo.ListExpirable(ctx, now)
	if err != nil {
		err = fmt.Errorf("list expirable: %w", err)
		s.metrics.SweepDone(started, err)
		return res, err
	}
	res.Scanned = len(items)

	var errs []error
	for _, r := range items {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		// ListExpirable ya filtra, pero el reloj del servicio manda.
		if !r.ExpiredAt(now) {
			res.Skipped++
			continue
		}

		prev := r.Status
		if _, err := s.apply(ctx, r, StatusExpired, now); err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				res.Skipped++
				continue
			}
			errs = append(errs, fmt.Errorf("expire %s: %w", r.ID, err))
			continue
		}
		res.Expired++
		s.metrics.Expired(string(prev))

		if prev == StatusAccepted {
			if err := s.reconcile(ctx, r.RecordID, r.SharedWithUserID, now); err != nil {
				errs = append(errs, fmt.Errorf("reconcile record %s: %w", r.RecordID, err))
				continue
			}
			res.Reconciled++
		}
	}

	err = errors.Join(errs...)
	s.metrics.SweepDone(started, err)

	s.log.Info("sharing sweep finished", map[string]any{
		"scanned":    res.Scanned,
		"expired":    res.Expired,
		"reconciled": res.Reconciled,
		"skipped":    res.Skipped,
	})
	if err != nil {
		s.log.Error("sharing sweep had errors", map[string]any{"error": err})
	}
	return res, err
}
