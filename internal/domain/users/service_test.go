package users_test

import (
	"context"
	"testing"

	"eeg-data-sharing/internal/adapters/storage/memory"
	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/ports/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectory(t *testing.T) *users.Service {
	t.Helper()
	repo := memory.NewUserRepo()
	for _, u := range []users.User{
		{ID: "u-1", Email: "Ana@Clinic.test", FirstName: "Ana", LastName: "Paz", Role: auth.RoleUser, Department: " Neuro "},
		{ID: "u-2", Email: "ben@clinic.test", LastName: "Ortiz", Role: auth.RoleDepartmentHead, Department: "Neuro"},
		{ID: "u-3", Email: "cam@clinic.test", Role: auth.RoleUser},
	} {
		require.NoError(t, repo.Create(context.Background(), u))
	}
	return users.NewService(repo)
}

func TestResolveRecipient(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	id, err := svc.ResolveRecipient(ctx, "  ANA@clinic.TEST ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)

	_, err = svc.ResolveRecipient(ctx, "nobody@clinic.test")
	assert.ErrorIs(t, err, users.ErrNotFound)

	_, err = svc.ResolveRecipient(ctx, "   ")
	assert.ErrorIs(t, err, users.ErrInvalidInput)
}

func TestDepartmentLookups(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	dept, err := svc.DepartmentOf(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Neuro", dept)

	dept, err = svc.DepartmentOf(ctx, "u-3")
	require.NoError(t, err)
	assert.Empty(t, dept)

	_, err = svc.DepartmentOf(ctx, "ghost")
	assert.ErrorIs(t, err, users.ErrNotFound)

	members, err := svc.DepartmentMemberIDs(ctx, "Neuro")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u-1", "u-2"}, members)

	members, err = svc.DepartmentMemberIDs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestEmailOf(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	assert.Equal(t, "ana@clinic.test", svc.EmailOf(ctx, "u-1"))
	assert.Empty(t, svc.EmailOf(ctx, "ghost"))
}

func TestNameOf(t *testing.T) {
	svc := newDirectory(t)
	ctx := context.Background()

	assert.Equal(t, "Ana Paz", svc.NameOf(ctx, "u-1"))
	assert.Equal(t, "Ortiz", svc.NameOf(ctx, "u-2"))
	assert.Empty(t, svc.NameOf(ctx, "u-3"))
	assert.Empty(t, svc.NameOf(ctx, "ghost"))
}
