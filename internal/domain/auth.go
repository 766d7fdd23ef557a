package domain

import "github.com/google/uuid"

// Identity is the authenticated caller, taken from a verified access token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

type TokenVerifier interface {
	Verify(token string) (Identity, error)
}
