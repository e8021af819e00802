package access

import (
	"testing"

	"eeg-data-sharing/internal/ports/auth"

	"github.com/stretchr/testify/assert"
)

func TestScopeFor(t *testing.T) {
	cases := []struct {
		name   string
		claims auth.Claims
		want   string
	}{
		{"admin", auth.Claims{UserID: "a", Role: auth.RoleAdmin}, "all"},
		{"jefe con departamento", auth.Claims{UserID: "d", Role: auth.RoleDepartmentHead, Department: "Neuro"}, "department"},
		{"jefe sin departamento", auth.Claims{UserID: "g", Role: auth.RoleDepartmentHead}, "own"},
		{"usuario", auth.Claims{UserID: "u", Role: auth.RoleUser, Department: "Neuro"}, "own"},
		{"rol vacío", auth.Claims{UserID: "x"}, "own"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scopeFor(tc.claims).String())
		})
	}
}
