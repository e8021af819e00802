package records

import "time"

// Record es un registro EEG visto desde el subsistema de sharing.
// Este servicio nunca crea ni borra registros; solo mantiene los campos
// derivados (IsShared, SharedWithUserIDs, LastSharedAt) como cache del ledger.
type Record struct {
	ID          string
	OwnerUserID string

	// Metadata de solo lectura, útil para listados.
	Filename   string
	Format     string
	SizeBytes  int64
	UploadedAt time.Time

	IsShared          bool
	SharedWithUserIDs []string
	LastSharedAt      *time.Time
}

// SharedWith indica si userID está en el set cacheado.
func (r Record) SharedWith(userID string) bool {
	for _, id := range r.SharedWithUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
