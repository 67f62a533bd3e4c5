package jwtauth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"suppletrack/internal/ports/auth"
)

// Verifier valida tokens HS256 emitidos por el servicio de cuentas.
// El sub del token es el user id.
type Verifier struct {
	secret []byte
}

func New(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(ctx context.Context, tokenStr string) (auth.Claims, error) {
	t, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !t.Valid {
		return auth.Claims{}, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Claims{}, errors.New("invalid claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return auth.Claims{}, errors.New("missing sub")
	}

	out := auth.Claims{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	return out, nil
}
