package models

import "time"

// Audit log actions.
const (
	ActionCheckIn       = "checkIn"
	ActionCheckOut      = "checkOut"
	ActionForceCheckOut = "forceCheckOut"
)

// AuditLog is an immutable record of one successful transaction, appended to
// the checkin_logs collection.
type AuditLog struct {
	UserID    int64     `bson:"user_id" json:"user_id"`
	CardID    int64     `bson:"card_id" json:"card_id"`
	Action    string    `bson:"action" json:"action"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
