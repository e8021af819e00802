package memory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"eeg-data-sharing/internal/domain/users"
)

// UserRepo es el directorio en memoria. Se siembra con Create (dev y tests).
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]users.User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]users.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) Create(ctx context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	email := users.NormalizeEmail(u.Email)
	if email == "" {
		return errors.New("user email required")
	}
	if _, exists := r.byID[u.ID]; exists {
		return errors.New("user already exists")
	}
	if _, taken := r.byEmail[email]; taken {
		return errors.New("user email already registered")
	}
	u.Email = email
	u.Department = strings.TrimSpace(u.Department)
	r.byID[u.ID] = u
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *UserRepo) ListIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for id, u := range r.byID {
		if u.Department != "" && u.Department == department {
			out = append(out, id)
		}
	}
	return out, nil
}
