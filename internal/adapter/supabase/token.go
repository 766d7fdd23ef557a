// Package supabase verifies access tokens issued by the Supabase auth service.
package supabase

import (
	"fmt"
	"time"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	audience = "authenticated"
	leeway   = 30 * time.Second
)

type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
	clock  clockwork.Clock
}

var _ domain.TokenVerifier = (*TokenVerifier)(nil)

func NewTokenVerifier(secret string, clock clockwork.Clock) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), clock: clock}
}

// Verify accepts HS256 tokens for the "authenticated" audience whose subject is
// a user UUID. Every failure wraps domain.ErrInvalidToken.
func (v *TokenVerifier) Verify(tokenString string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", domain.ErrInvalidToken, err)
	}
	if !token.Valid {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: subject is not a user id", domain.ErrInvalidToken)
	}

	return domain.Identity{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}
