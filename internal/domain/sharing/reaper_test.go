package sharing_test

import (
	"context"
	"testing"
	"time"

	"eeg-data-sharing/internal/adapters/storage/memory"
	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresAcceptedAndIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(time.Hour)))
	_, err := e.svc.Accept(ctx, req.ID, "bob")
	require.NoError(t, err)
	require.True(t, e.record(t, "rec-1").IsShared)

	e.advance(2 * time.Hour)

	res, err := e.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, sharing.SweepResult{Scanned: 1, Expired: 1, Reconciled: 1}, res)

	stored, err := e.repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, sharing.StatusExpired, stored.Status)
	require.NotNil(t, stored.AcceptedAt, "acceptedAt survives expiry")

	afterFirst := e.record(t, "rec-1")
	assert.False(t, afterFirst.IsShared)
	assert.Empty(t, afterFirst.SharedWithUserIDs)

	res, err = e.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, sharing.SweepResult{}, res)
	assert.Equal(t, afterFirst, e.record(t, "rec-1"))
}

func TestSweepExpiresPendingWithoutTouchingRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(time.Minute)))
	live := e.share(t, "rec-2", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(48*time.Hour)))
	e.advance(time.Hour)

	res, err := e.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Reconciled)

	stored, err := e.repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, sharing.StatusExpired, stored.Status)

	stillPending, err := e.repo.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, sharing.StatusPending, stillPending.Status)
}

func TestSweepKeepsRecipientWithAnotherActiveGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	shortLived := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(time.Hour)))
	_, err := e.svc.Accept(ctx, shortLived.ID, "bob")
	require.NoError(t, err)
	open := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, nil)
	_, err = e.svc.Accept(ctx, open.ID, "bob")
	require.NoError(t, err)

	e.advance(2 * time.Hour)
	res, err := e.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)

	rec := e.record(t, "rec-1")
	assert.Equal(t, []string{"bob"}, rec.SharedWithUserIDs)
	assert.True(t, rec.IsShared)
}

// racingRepo revoca la entrada justo después de que el reaper la listó.
type racingRepo struct {
	sharing.Repository
	afterList func()
}

func (r *racingRepo) ListExpirable(ctx context.Context, now time.Time) ([]sharing.Request, error) {
	items, err := r.Repository.ListExpirable(ctx, now)
	if r.afterList != nil {
		r.afterList()
		r.afterList = nil
	}
	return items, err
}

func TestSweepSkipsEntriesThatMovedUnderneath(t *testing.T) {
	repo := &racingRepo{Repository: memory.NewSharingRepo()}
	e := newEnvWithRepo(t, repo)
	ctx := context.Background()

	req := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(time.Hour)))
	_, err := e.svc.Accept(ctx, req.ID, "bob")
	require.NoError(t, err)
	e.advance(2 * time.Hour)

	repo.afterList = func() {
		_, err := e.svc.Revoke(ctx, req.ID, "alice")
		require.NoError(t, err)
	}

	res, err := e.reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 0, res.Expired)
	assert.Equal(t, 1, res.Skipped)

	stored, err := e.repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, sharing.StatusRevoked, stored.Status)
	assert.Empty(t, e.record(t, "rec-1").SharedWithUserIDs)
}

func TestSweepStopsOnCancel(t *testing.T) {
	e := newEnv(t)

	req := e.share(t, "rec-1", "bob@clinic.test", sharing.PermissionViewOnly, ptr(base.Add(time.Minute)))
	e.advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.reaper.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Expired)

	stored, err := e.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, sharing.StatusPending, stored.Status)
}

func TestSweepDurationUsesWallClock(t *testing.T) {
	e := newEnv(t)
	reg := prometheus.NewRegistry()

	// reloj del servicio fijo y lejos del real
	old := base.AddDate(-3, 0, 0)
	svc := sharing.NewService(e.repo, e.records, e.users,
		sharing.WithClock(func() time.Time { return old }),
		sharing.WithMetrics(metrics.New(reg)),
	)

	_, err := sharing.NewReaper(svc).Sweep(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "sharing_reaper_duration_seconds" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(1), h.GetSampleCount())
		assert.Less(t, h.GetSampleSum(), 60.0)
	}
	assert.True(t, found)
}
