package auth

import (
	"context"
	"errors"
)

// ErrNoCredentials: el request no trae token.
var ErrNoCredentials = errors.New("auth: no credentials")

// AuthVerifier valida un bearer token y devuelve la identidad verificada
// (userId, rol, departamento). Implementaciones: JWT local y Odin.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// VerifierFunc adapta una función a AuthVerifier.
type VerifierFunc func(ctx context.Context, token string) (Claims, error)

func (f VerifierFunc) Verify(ctx context.Context, token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrNoCredentials
	}
	return f(ctx, token)
}
