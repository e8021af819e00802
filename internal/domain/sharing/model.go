package sharing

import (
	"strings"
	"time"
)

type Permission string

const (
	PermissionViewOnly     Permission = "view_only"
	PermissionViewDownload Permission = "view_download"
)

func (p Permission) Valid() bool {
	return p == PermissionViewOnly || p == PermissionViewDownload
}

// ParsePermission acepta vacío como view_only (default histórico).
func ParsePermission(s string) (Permission, error) {
	p := Permission(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PermissionViewOnly, nil
	}
	if !p.Valid() {
		return "", ErrInvalidInput
	}
	return p, nil
}

// Request es una entrada del ledger: una propuesta de acceso con ciclo de vida propio.
// Una vez terminal se conserva para auditoría y no se reutiliza.
type Request struct {
	ID string

	RecordID string

	SharedByUserID   string // owner del registro al crear
	SharedWithUserID string // destinatario resuelto por email

	Permission Permission
	Message    *string
	Status     Status

	RequestedAt time.Time
	AcceptedAt  *time.Time
	RejectedAt  *time.Time
	ExpiresAt   *time.Time
}

// ExpiredAt es el único predicado de expiración: lo usan Accept, el resolver y el reaper.
func (r Request) ExpiredAt(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// GrantsAccess: aceptado y no expirado. Es el único estado que otorga acceso.
func (r Request) GrantsAccess(now time.Time) bool {
	return r.Status == StatusAccepted && !r.ExpiredAt(now)
}

// InvolvesUser indica si userID es parte (sharer o destinatario).
func (r Request) InvolvesUser(userID string) bool {
	return userID != "" && (r.SharedByUserID == userID || r.SharedWithUserID == userID)
}
