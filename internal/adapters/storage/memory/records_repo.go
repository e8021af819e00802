package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"eeg-data-sharing/internal/domain/records"
)

type recordRepo struct {
	mu   sync.RWMutex
	byID map[string]records.Record
}

func NewRecordRepo() records.Repository {
	return &recordRepo{
		byID: make(map[string]records.Record),
	}
}

func (r *recordRepo) Create(ctx context.Context, rec records.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return errors.New("record already exists")
	}
	r.byID[rec.ID] = clone(rec)
	return nil
}

func (r *recordRepo) GetByID(ctx context.Context, id string) (records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return records.Record{}, records.ErrNotFound
	}
	return clone(rec), nil
}

func (r *recordRepo) ListAll(ctx context.Context) ([]records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.Record, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, clone(rec))
	}
	return out, nil
}

func (r *recordRepo) ListByOwners(ctx context.Context, ownerUserIDs []string) ([]records.Record, error) {
	owners := toSet(ownerUserIDs)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.Record, 0)
	for _, rec := range r.byID {
		if _, ok := owners[rec.OwnerUserID]; ok {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (r *recordRepo) ListByIDs(ctx context.Context, ids []string) ([]records.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]records.Record, 0, len(ids))
	for id := range toSet(ids) {
		if rec, ok := r.byID[id]; ok {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (r *recordRepo) AddSharedUser(ctx context.Context, recordID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[recordID]
	if !ok {
		return records.ErrNotFound
	}
	if !rec.SharedWith(userID) {
		rec.SharedWithUserIDs = append(rec.SharedWithUserIDs, userID)
	}
	rec.IsShared = true
	t := at
	rec.LastSharedAt = &t
	r.byID[recordID] = rec
	return nil
}

func (r *recordRepo) RemoveSharedUser(ctx context.Context, recordID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[recordID]
	if !ok {
		return records.ErrNotFound
	}
	kept := make([]string, 0, len(rec.SharedWithUserIDs))
	for _, id := range rec.SharedWithUserIDs {
		if id != userID {
			kept = append(kept, id)
		}
	}
	rec.SharedWithUserIDs = kept
	rec.IsShared = len(kept) > 0
	r.byID[recordID] = rec
	return nil
}

func (r *recordRepo) SetSharedFlag(ctx context.Context, recordID string, shared bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[recordID]
	if !ok {
		return records.ErrNotFound
	}
	rec.IsShared = shared
	r.byID[recordID] = rec
	return nil
}

// clone evita compartir el slice del set entre llamadores.
func clone(rec records.Record) records.Record {
	if rec.SharedWithUserIDs != nil {
		rec.SharedWithUserIDs = append([]string(nil), rec.SharedWithUserIDs...)
	}
	if rec.LastSharedAt != nil {
		t := *rec.LastSharedAt
		rec.LastSharedAt = &t
	}
	return rec
}

func toSet(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
