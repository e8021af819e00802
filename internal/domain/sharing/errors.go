package sharing

import "errors"

// Errores del ledger. Se envuelven con contexto (%w); comparar con errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("sharing request already pending")
	ErrExpired      = errors.New("sharing request expired")
)
