package records_test

import (
	"context"
	"testing"
	"time"

	"eeg-data-sharing/internal/adapters/storage/memory"
	"eeg-data-sharing/internal/domain/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newCatalog(t *testing.T) *records.Service {
	t.Helper()
	repo := memory.NewRecordRepo()
	for _, rec := range []records.Record{
		{ID: "r-old", OwnerUserID: "o-1", UploadedAt: t0},
		{ID: "r-mid", OwnerUserID: "o-2", UploadedAt: t0.Add(time.Hour)},
		{ID: "r-new", OwnerUserID: "o-1", UploadedAt: t0.Add(2 * time.Hour)},
	} {
		require.NoError(t, repo.Create(context.Background(), rec))
	}
	return records.NewService(repo)
}

func TestListByIDs_NewestFirstSkipsMissing(t *testing.T) {
	svc := newCatalog(t)

	items, err := svc.ListByIDs(context.Background(), []string{"r-old", "missing", "r-new", "r-old"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r-new", items[0].ID)
	assert.Equal(t, "r-old", items[1].ID)

	items, err = svc.ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestIDsByOwners(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	ids, err := svc.IDsByOwners(ctx, []string{" o-1 ", ""})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r-old", "r-new"}, ids)

	ids, err = svc.IDsByOwners(ctx, []string{"  "})
	require.NoError(t, err)
	assert.Empty(t, ids)

	all, err := svc.AllIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOwnerOf(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	owner, err := svc.OwnerOf(ctx, "r-mid")
	require.NoError(t, err)
	assert.Equal(t, "o-2", owner)

	_, err = svc.OwnerOf(ctx, "missing")
	assert.ErrorIs(t, err, records.ErrNotFound)

	_, err = svc.OwnerOf(ctx, "")
	assert.ErrorIs(t, err, records.ErrInvalidInput)
}

func TestSharedSetCache(t *testing.T) {
	svc := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, svc.AddSharedUser(ctx, "r-old", "u-9", t0))
	require.NoError(t, svc.AddSharedUser(ctx, "r-old", "u-9", t0.Add(time.Minute)))
	require.NoError(t, svc.AddSharedUser(ctx, "r-old", "u-8", t0.Add(2*time.Minute)))

	rec, err := svc.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.True(t, rec.IsShared)
	assert.Equal(t, []string{"u-9", "u-8"}, rec.SharedWithUserIDs)
	require.NotNil(t, rec.LastSharedAt)
	assert.Equal(t, t0.Add(2*time.Minute), *rec.LastSharedAt)

	// la copia devuelta no comparte el set interno
	rec.SharedWithUserIDs[0] = "tampered"
	again, err := svc.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.Equal(t, "u-9", again.SharedWithUserIDs[0])

	require.NoError(t, svc.RemoveSharedUser(ctx, "r-old", "u-9"))
	require.NoError(t, svc.RemoveSharedUser(ctx, "r-old", "u-8"))
	rec, err = svc.GetByID(ctx, "r-old")
	require.NoError(t, err)
	assert.False(t, rec.IsShared)
	assert.Empty(t, rec.SharedWithUserIDs)

	assert.ErrorIs(t, svc.AddSharedUser(ctx, "missing", "u-9", t0), records.ErrNotFound)
}
