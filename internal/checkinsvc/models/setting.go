package models

import "time"

// Setting represents the settings table. MaxCapacity is the per-pool
// occupancy cap; operators may change it at runtime, so it is read fresh at
// every admission decision.
type Setting struct {
	ID          int64     `json:"id"`
	MaxCapacity int       `json:"max_capacity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
