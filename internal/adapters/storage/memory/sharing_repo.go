package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"eeg-data-sharing/internal/domain/sharing"
)

type sharingRepo struct {
	mu   sync.RWMutex
	byID map[string]sharing.Request
}

func NewSharingRepo() sharing.Repository {
	return &sharingRepo{
		byID: make(map[string]sharing.Request),
	}
}

// Create chequea el pending duplicado bajo el mismo lock que la inserción.
func (r *sharingRepo) Create(ctx context.Context, req sharing.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(req.ID) == "" {
		return errors.New("sharing request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return errors.New("sharing request already exists")
	}
	if req.Status == sharing.StatusPending {
		for _, other := range r.byID {
			if other.Status == sharing.StatusPending &&
				other.RecordID == req.RecordID &&
				other.SharedByUserID == req.SharedByUserID &&
				other.SharedWithUserID == req.SharedWithUserID {
				return sharing.ErrConflict
			}
		}
	}
	r.byID[req.ID] = req
	return nil
}

func (r *sharingRepo) GetByID(ctx context.Context, id string) (sharing.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return sharing.Request{}, sharing.ErrNotFound
	}
	return req, nil
}

func (r *sharingRepo) UpdateStatus(ctx context.Context, req sharing.Request, expected sharing.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[req.ID]
	if !ok {
		return sharing.ErrNotFound
	}
	if current.Status != expected {
		return sharing.ErrInvalidState
	}
	r.byID[req.ID] = req
	return nil
}

func (r *sharingRepo) ListBySharedWith(ctx context.Context, userID string) ([]sharing.Request, error) {
	return r.filter(func(req sharing.Request) bool { return req.SharedWithUserID == userID }), nil
}

func (r *sharingRepo) ListBySharedBy(ctx context.Context, userID string) ([]sharing.Request, error) {
	return r.filter(func(req sharing.Request) bool { return req.SharedByUserID == userID }), nil
}

func (r *sharingRepo) ListByRecord(ctx context.Context, recordID string) ([]sharing.Request, error) {
	return r.filter(func(req sharing.Request) bool { return req.RecordID == recordID }), nil
}

func (r *sharingRepo) ListAccepted(ctx context.Context, f sharing.AcceptedFilter) ([]sharing.Request, error) {
	return r.filter(func(req sharing.Request) bool {
		if req.Status != sharing.StatusAccepted {
			return false
		}
		if f.RecordID != "" && req.RecordID != f.RecordID {
			return false
		}
		if f.SharedWithUserID != "" && req.SharedWithUserID != f.SharedWithUserID {
			return false
		}
		return true
	}), nil
}

func (r *sharingRepo) ListExpirable(ctx context.Context, now time.Time) ([]sharing.Request, error) {
	return r.filter(func(req sharing.Request) bool {
		if req.Status != sharing.StatusPending && req.Status != sharing.StatusAccepted {
			return false
		}
		return req.ExpiredAt(now)
	}), nil
}

func (r *sharingRepo) filter(keep func(sharing.Request) bool) []sharing.Request {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]sharing.Request, 0)
	for _, req := range r.byID {
		if keep(req) {
			out = append(out, req)
		}
	}
	return out
}
