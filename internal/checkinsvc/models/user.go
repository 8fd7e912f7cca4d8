package models

import (
	"time"
)

// User represents the users table in the database. CardID mirrors the bound
// card's user reference and the two must stay in lockstep; the card side owns
// the authoritative in_use flag.
type User struct {
	UserId    int64     `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	CardID    *int64    `json:"card_id,omitempty"`
	Card      *Card     `json:"card,omitempty"` // populated by eager lookups only
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
