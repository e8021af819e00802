package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/ports/auth"
)

// UsersRepo lee el directorio de usuarios. Las altas las hace el proveedor de identidad.
type UsersRepo struct {
	db *sql.DB
}

func NewUsersRepo(db *sql.DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return users.User{}, users.ErrNotFound
	}
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return users.User{}, users.ErrNotFound
	}
	return r.getOne(ctx, `WHERE lower(email) = $1`, email)
}

func (r *UsersRepo) ListIDsByDepartment(ctx context.Context, department string) ([]string, error) {
	department = strings.TrimSpace(department)
	if department == "" {
		return nil, nil
	}

	// mismo criterio que DepartmentOf: se compara sin espacios de borde
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE btrim(department) = $1`, department)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *UsersRepo) getOne(ctx context.Context, where string, arg any) (users.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, department
		FROM users `+where, arg)

	var (
		u          users.User
		role       string
		department sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &role, &department); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}
	u.Role = auth.ParseRole(role)
	u.Department = department.String
	return u, nil
}
