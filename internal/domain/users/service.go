package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// ResolveRecipient traduce un email al id del usuario destinatario.
// Un email sin usuario es error (no se difiere la resolución).
func (s *Service) ResolveRecipient(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrInvalidInput
	}
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("resolve recipient %q: %w", email, err)
	}
	return u.ID, nil
}

// DepartmentOf devuelve el departamento del usuario ("" si no tiene).
func (s *Service) DepartmentOf(ctx context.Context, userID string) (string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(u.Department), nil
}

func (s *Service) DepartmentMemberIDs(ctx context.Context, department string) ([]string, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, nil
	}
	return s.repo.ListIDsByDepartment(ctx, department)
}

// EmailOf es best-effort para enriquecer respuestas.
func (s *Service) EmailOf(ctx context.Context, userID string) string {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.Email
}

// NameOf devuelve el nombre para mostrar; "" si el usuario no existe o no tiene nombre.
func (s *Service) NameOf(ctx context.Context, userID string) string {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return ""
	}
	return u.FullName()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
