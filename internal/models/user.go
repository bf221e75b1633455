package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Name      string    `db:"name"`
	GoogleSub string    `db:"google_sub"`
	Plan      string    `db:"plan"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Usage is the Usage Gate answer for one user.
type Usage struct {
	Current    int     `json:"current"`
	Limit      *int    `json:"limit"`
	Plan       string  `json:"plan"`
	CanCreate  bool    `json:"can_create"`
	Percentage float64 `json:"percentage"`
}
