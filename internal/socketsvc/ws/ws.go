package ws

import (
	"encoding/json"
	"sync"

	"github.com/clusterpass/checkin-services/internal/comm"
	"github.com/clusterpass/checkin-services/internal/socketsvc/broker"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Ws struct {
	connMap sync.Map // to keep track of socket connection with socketId
	Broker  *broker.Broker
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "status", "checkin", "checkout":
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

// forward relays a client request to the checkin service over NATS, stamping
// the socket id so the response finds its way back.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	if len(msg.Data) == 0 {
		log.Errorf("empty payload for %s from socket %s", msg.Type, socketId)
		return
	}

	msg.SocketId = socketId

	bytes, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	topic := "socket.service"
	if err := s.Broker.Publish(topic, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", topic, err)
		return
	}

	log.Debugf("forwarded %s message from socket %s to topic %s", msg.Type, socketId, topic)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
}

// Broadcast pushes a message to every connected client; used for capacity
// notices that are not tied to one socket.
func (s *Ws) Broadcast(m *comm.WSMessage) {
	s.connMap.Range(func(key, value interface{}) bool {
		conn := value.(*websocket.Conn)
		if err := conn.WriteJSON(m); err != nil {
			log.Errorf("broadcast to socket %s failed: %v", key.(string), err)
		}
		return true // continue iterating
	})
}
