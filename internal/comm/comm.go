package comm

import (
	"encoding/json"
)

// WSMessage is the envelope exchanged between socketsvc and checkinsvc over
// NATS and between socketsvc and web clients. SocketId routes responses back
// to the originating connection.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "checkin", "status-response"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type CheckinRequest struct {
	UserId int64 `json:"user_id"`
	CardId int64 `json:"card_id"`
}

type CheckoutRequest struct {
	UserId int64 `json:"user_id"`
}

type StatusRequest struct {
	UserId int64 `json:"user_id"`
}

type CheckinResult struct {
	Ok bool `json:"ok"`
}

type CheckoutResult struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CapacityNotice is broadcast to every connected client when a pool is close
// to full.
type CapacityNotice struct {
	Pool    string `json:"pool"` // location code, e.g. "east"
	Message string `json:"message"`
}
