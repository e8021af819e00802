package records

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	ListByOwners(ctx context.Context, ownerUserIDs []string) ([]Record, error)
	ListByIDs(ctx context.Context, ids []string) ([]Record, error)

	// Mutadores de los campos derivados. Deben ser idempotentes.
	AddSharedUser(ctx context.Context, recordID, userID string, at time.Time) error
	RemoveSharedUser(ctx context.Context, recordID, userID string) error
	SetSharedFlag(ctx context.Context, recordID string, shared bool) error
}
