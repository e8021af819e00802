package auth

import "strings"

// Role es el rol organizacional emitido por el proveedor de identidad.
type Role string

const (
	RoleUser           Role = "user"
	RoleDepartmentHead Role = "department_head"
	RoleAdmin          Role = "admin"
)

// ParseRole normaliza un rol recibido en claims/headers.
// Valores desconocidos caen en RoleUser (el tier con menos alcance).
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "department_head", "departmenthead":
		return RoleDepartmentHead
	default:
		return RoleUser
	}
}

// Claims representa la información extraída del token.
type Claims struct {
	UserID     string
	Email      string
	Role       Role
	Department string
}
