package records

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("record not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) AllIDs(ctx context.Context) ([]string, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return ids(items), nil
}

func (s *Service) IDsByOwners(ctx context.Context, ownerUserIDs []string) ([]string, error) {
	clean := make([]string, 0, len(ownerUserIDs))
	for _, id := range ownerUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return nil, nil
	}
	items, err := s.repo.ListByOwners(ctx, clean)
	if err != nil {
		return nil, err
	}
	return ids(items), nil
}

// ListByIDs devuelve los registros existentes en orden de subida (más nuevos primero).
func (s *Service) ListByIDs(ctx context.Context, recordIDs []string) ([]Record, error) {
	if len(recordIDs) == 0 {
		return []Record{}, nil
	}
	items, err := s.repo.ListByIDs(ctx, recordIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UploadedAt.After(items[j].UploadedAt)
	})
	return items, nil
}

func (s *Service) AddSharedUser(ctx context.Context, recordID, userID string, at time.Time) error {
	return s.repo.AddSharedUser(ctx, recordID, userID, at)
}

func (s *Service) RemoveSharedUser(ctx context.Context, recordID, userID string) error {
	return s.repo.RemoveSharedUser(ctx, recordID, userID)
}

func (s *Service) SetSharedFlag(ctx context.Context, recordID string, shared bool) error {
	return s.repo.SetSharedFlag(ctx, recordID, shared)
}

func ids(items []Record) []string {
	out := make([]string, 0, len(items))
	for _, r := range items {
		out = append(out, r.ID)
	}
	return out
}
