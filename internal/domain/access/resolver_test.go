package access_test

import (
	"context"
	"testing"
	"time"

	"eeg-data-sharing/internal/adapters/storage/memory"
	"eeg-data-sharing/internal/domain/access"
	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	resolver *access.Resolver
	ledger   *sharing.Service
	now      time.Time
	people   map[string]auth.Claims
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	directory := []users.User{
		{ID: "alice", Email: "alice@clinic.test", Role: auth.RoleUser, Department: "Neuro"},
		{ID: "erin", Email: "erin@clinic.test", Role: auth.RoleUser, Department: "Neuro"},
		{ID: "dave", Email: "dave@clinic.test", Role: auth.RoleDepartmentHead, Department: "Neuro"},
		{ID: "frank", Email: "frank@clinic.test", Role: auth.RoleDepartmentHead, Department: "Cardio"},
		{ID: "gina", Email: "gina@clinic.test", Role: auth.RoleDepartmentHead},
		{ID: "adam", Email: "adam@clinic.test", Role: auth.RoleAdmin},
		{ID: "bob", Email: "bob@clinic.test", Role: auth.RoleUser},
	}
	userRepo := memory.NewUserRepo()
	people := map[string]auth.Claims{}
	for _, u := range directory {
		require.NoError(t, userRepo.Create(ctx, u))
		people[u.ID] = auth.Claims{UserID: u.ID, Email: u.Email, Role: u.Role, Department: u.Department}
	}

	recordRepo := memory.NewRecordRepo()
	for _, rec := range []records.Record{
		{ID: "r-alice", OwnerUserID: "alice", UploadedAt: base},
		{ID: "r-erin", OwnerUserID: "erin", UploadedAt: base},
		{ID: "r-bob", OwnerUserID: "bob", UploadedAt: base},
		{ID: "r-frank", OwnerUserID: "frank", UploadedAt: base},
		// owner que ya no está en el directorio
		{ID: "r-orphan", OwnerUserID: "ghost", UploadedAt: base},
	} {
		require.NoError(t, recordRepo.Create(ctx, rec))
	}

	f := &fixture{now: base, people: people}
	recordSvc := records.NewService(recordRepo)
	userSvc := users.NewService(userRepo)
	f.ledger = sharing.NewService(memory.NewSharingRepo(), recordSvc, userSvc,
		sharing.WithClock(func() time.Time { return f.now }),
	)
	f.resolver = access.NewResolver(recordSvc, userSvc, f.ledger)
	return f
}

func (f *fixture) grant(t *testing.T, recordID, owner, recipientEmail string, perm sharing.Permission, expiresAt *time.Time) sharing.Request {
	t.Helper()
	ctx := context.Background()
	req, err := f.ledger.CreateRequest(ctx, sharing.CreateInput{
		RequesterID:    owner,
		RecordID:       recordID,
		RecipientEmail: recipientEmail,
		Permission:     perm,
		ExpiresAt:      expiresAt,
	})
	require.NoError(t, err)
	accepted, err := f.ledger.Accept(ctx, req.ID, req.SharedWithUserID)
	require.NoError(t, err)
	return accepted
}

func TestAccessibleRecordIDsByTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		who  string
		want []string
	}{
		{"adam", []string{"r-alice", "r-bob", "r-erin", "r-frank", "r-orphan"}},
		{"dave", []string{"r-alice", "r-erin"}},
		{"frank", []string{"r-frank"}},
		{"gina", []string{}},
		{"alice", []string{"r-alice"}},
		{"bob", []string{"r-bob"}},
	}
	for _, tc := range cases {
		t.Run(tc.who, func(t *testing.T) {
			got, err := f.resolver.AccessibleRecordIDs(ctx, f.people[tc.who])
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSharedGrantUnionsIntoEveryTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.grant(t, "r-bob", "bob", "frank@clinic.test", sharing.PermissionViewOnly, nil)
	f.grant(t, "r-bob", "bob", "alice@clinic.test", sharing.PermissionViewOnly, nil)

	got, err := f.resolver.AccessibleRecordIDs(ctx, f.people["frank"])
	require.NoError(t, err)
	assert.Equal(t, []string{"r-bob", "r-frank"}, got)

	got, err = f.resolver.AccessibleRecordIDs(ctx, f.people["alice"])
	require.NoError(t, err)
	assert.Equal(t, []string{"r-alice", "r-bob"}, got)
}

func TestSharedPermissionAndRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.grant(t, "r-alice", "alice", "bob@clinic.test", sharing.PermissionViewOnly, nil)

	d, err := f.resolver.Permission(ctx, "r-alice", f.people["bob"])
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Permission: sharing.PermissionViewOnly, Basis: access.BasisShared, RequestID: g.ID}, d)

	_, err = f.ledger.Revoke(ctx, g.ID, "alice")
	require.NoError(t, err)

	ok, err := f.resolver.CanAccess(ctx, "r-alice", f.people["bob"])
	require.NoError(t, err)
	assert.False(t, ok)

	d, err = f.resolver.Permission(ctx, "r-alice", f.people["bob"])
	require.NoError(t, err)
	assert.Equal(t, access.BasisNone, d.Basis)
	assert.Empty(t, d.Permission)
}

func TestDepartmentHeadSeesDepartmentRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.resolver.CanAccess(ctx, "r-erin", f.people["dave"])
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := f.resolver.Permission(ctx, "r-erin", f.people["dave"])
	require.NoError(t, err)
	assert.Equal(t, sharing.PermissionViewDownload, d.Permission)
	assert.Equal(t, access.BasisDepartment, d.Basis)

	// otro departamento
	ok, err = f.resolver.CanAccess(ctx, "r-erin", f.people["frank"])
	require.NoError(t, err)
	assert.False(t, ok)

	// owner fuera del directorio: sin departamento, sin error
	ok, err = f.resolver.CanAccess(ctx, "r-orphan", f.people["dave"])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOwnerAlwaysViewDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// un grant hacia el propio owner no es posible; el owner nunca pasa por el ledger
	d, err := f.resolver.Permission(ctx, "r-alice", f.people["alice"])
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Permission: sharing.PermissionViewDownload, Basis: access.BasisOwner}, d)

	d, err = f.resolver.Permission(ctx, "r-alice", f.people["adam"])
	require.NoError(t, err)
	assert.Equal(t, access.BasisAdmin, d.Basis)
	assert.Equal(t, sharing.PermissionViewDownload, d.Permission)
}

func TestExpiredGrantDeniedBeforeSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deadline := base.Add(time.Hour)
	f.grant(t, "r-alice", "alice", "bob@clinic.test", sharing.PermissionViewDownload, &deadline)

	ok, err := f.resolver.CanAccess(ctx, "r-alice", f.people["bob"])
	require.NoError(t, err)
	assert.True(t, ok)

	f.now = deadline
	ok, err = f.resolver.CanAccess(ctx, "r-alice", f.people["bob"])
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := f.resolver.AccessibleRecordIDs(ctx, f.people["bob"])
	require.NoError(t, err)
	assert.Equal(t, []string{"r-bob"}, ids)
}

func TestCanAccessMatchesAccessibleSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.grant(t, "r-erin", "erin", "bob@clinic.test", sharing.PermissionViewOnly, nil)
	f.grant(t, "r-frank", "frank", "dave@clinic.test", sharing.PermissionViewDownload, nil)
	expiring := base.Add(time.Minute)
	f.grant(t, "r-alice", "alice", "gina@clinic.test", sharing.PermissionViewOnly, &expiring)
	f.now = base.Add(time.Hour)

	allRecords := []string{"r-alice", "r-erin", "r-bob", "r-frank", "r-orphan"}
	for who, p := range f.people {
		ids, err := f.resolver.AccessibleRecordIDs(ctx, p)
		require.NoError(t, err)
		set := map[string]bool{}
		for _, id := range ids {
			set[id] = true
		}
		for _, recordID := range allRecords {
			ok, err := f.resolver.CanAccess(ctx, recordID, p)
			require.NoError(t, err)
			assert.Equal(t, set[recordID], ok, "%s on %s", who, recordID)

			d, err := f.resolver.Permission(ctx, recordID, p)
			require.NoError(t, err)
			if !ok {
				assert.Empty(t, d.Permission, "%s on %s", who, recordID)
			} else {
				assert.NotEmpty(t, d.Permission, "%s on %s", who, recordID)
			}
		}
	}
}

func TestResolverErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.resolver.Permission(ctx, "r-missing", f.people["adam"])
	assert.ErrorIs(t, err, access.ErrNotFound)

	_, err = f.resolver.CanAccess(ctx, "r-alice", auth.Claims{})
	assert.ErrorIs(t, err, access.ErrInvalidInput)

	_, err = f.resolver.AccessibleRecordIDs(ctx, auth.Claims{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, access.ErrInvalidInput)
}
