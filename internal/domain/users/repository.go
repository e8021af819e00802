package users

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	ListIDsByDepartment(ctx context.Context, department string) ([]string, error)
}
