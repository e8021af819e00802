package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eeg-data-sharing/internal/ports/auth"

	gojwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims es el payload esperado: sub = userID, más rol y departamento.
type Claims struct {
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	gojwt.RegisteredClaims
}

// Verifier valida tokens HS256 emitidos por el proveedor de identidad.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrInvalidToken
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.issuer))
	}

	var c Claims
	_, err := gojwt.ParseWithClaims(token, &c, func(*gojwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := strings.TrimSpace(c.Subject)
	if userID == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return auth.Claims{
		UserID:     userID,
		Email:      strings.TrimSpace(c.Email),
		Role:       auth.ParseRole(c.Role),
		Department: strings.TrimSpace(c.Department),
	}, nil
}

// Sign emite un token con el mismo formato. Lo usan los tests y herramientas de dev.
func (v *Verifier) Sign(claims auth.Claims, ttl time.Duration) (string, error) {
	if v == nil || len(v.secret) == 0 {
		return "", ErrNotConfigured
	}
	now := time.Now()
	c := Claims{
		Email:      claims.Email,
		Role:       string(claims.Role),
		Department: claims.Department,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    v.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			NotBefore: gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString(v.secret)
}
