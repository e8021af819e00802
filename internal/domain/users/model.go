package users

import "eeg-data-sharing/internal/ports/auth"

// User es la vista de solo lectura que este servicio necesita del directorio
// de usuarios. Altas/bajas viven en el proveedor de identidad.
type User struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Role       auth.Role
	Department string
}

func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
