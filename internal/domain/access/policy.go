package access

import "eeg-data-sharing/internal/ports/auth"

// Scope es el alcance que un rol tiene por sí mismo, sin contar sharing.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeDepartment
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeDepartment:
		return "department"
	default:
		return "own"
	}
}

type tierPolicy struct {
	Role  auth.Role
	Scope Scope
}

// policies se evalúa en orden; la primera fila que aplica define el tier.
// Un rol nuevo es una fila nueva.
var policies = []tierPolicy{
	{Role: auth.RoleAdmin, Scope: ScopeAll},
	{Role: auth.RoleDepartmentHead, Scope: ScopeDepartment},
}

// scopeFor devuelve el alcance del principal. Un jefe sin departamento cae en ScopeOwn.
func scopeFor(p auth.Claims) Scope {
	for _, pol := range policies {
		if pol.Role != p.Role {
			continue
		}
		if pol.Scope == ScopeDepartment && p.Department == "" {
			return ScopeOwn
		}
		return pol.Scope
	}
	return ScopeOwn
}
