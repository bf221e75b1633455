package auth

import "github.com/google/uuid"

// Principal is the authenticated caller. It is passed explicitly to every
// operation that acts on a user's behalf.
type Principal struct {
	UserID uuid.UUID
	Email  string
}
