package models

import "time"

// Card represents the cards table in the database. A card belongs to exactly
// one location pool (Type) and is either free or bound to the user holding it.
// UserID is set iff InUse is true.
type Card struct {
	ID        int64     `json:"id"`
	Type      int       `json:"type"` // location pool the card belongs to
	InUse     bool      `json:"in_use"`
	UserID    *int64    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
