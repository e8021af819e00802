package sharing

import (
	"context"
	"time"
)

type Repository interface {
	// Create falla con ErrConflict si ya hay un pending para (record, sharedBy, sharedWith).
	// La verificación debe ser atómica con la inserción.
	Create(ctx context.Context, r Request) error

	GetByID(ctx context.Context, id string) (Request, error)

	// UpdateStatus persiste r solo si el estado almacenado sigue siendo expected
	// (compare-and-swap). Si cambió devuelve ErrInvalidState; si no existe, ErrNotFound.
	UpdateStatus(ctx context.Context, r Request, expected Status) error

	ListBySharedWith(ctx context.Context, userID string) ([]Request, error)
	ListBySharedBy(ctx context.Context, userID string) ([]Request, error)
	ListByRecord(ctx context.Context, recordID string) ([]Request, error)

	// ListAccepted filtra por status=accepted; campos vacíos del filtro no restringen.
	// No aplica expiración: eso lo decide el servicio con su reloj.
	ListAccepted(ctx context.Context, f AcceptedFilter) ([]Request, error)

	// ListExpirable: pending/accepted con expires_at <= now.
	ListExpirable(ctx context.Context, now time.Time) ([]Request, error)
}

type AcceptedFilter struct {
	RecordID         string
	SharedWithUserID string
}
