package broker

import (
	"encoding/json"

	"github.com/clusterpass/checkin-services/internal/comm"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (*websocket.Conn, bool)
	Broadcast     func(*comm.WSMessage)
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*websocket.Conn, bool), fncBroadcast func(*comm.WSMessage)) *Broker {
	return &Broker{
		Conn:          conn,
		GetConnection: fncGetConnection,
		Broadcast:     fncBroadcast,
	}
}

// consume messages from the checkin service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to the checkin service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// handleMessages receives messages from the checkin service
func (b *Broker) handleMessages(msgNats *nats.Msg) {
	message := &comm.WSMessage{}
	err := json.Unmarshal(msgNats.Data, &message)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	switch message.Type {
	case "status-response", "checkin-response", "checkout-response":
		b.sendMessage(message)
	case "capacity-notice":
		b.Broadcast(message)
	default:
		log.Error("Unknown message")
		return
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(m *comm.WSMessage) {
	socketId := m.SocketId
	if conn, ok := b.GetConnection(socketId); ok {
		if err := conn.WriteJSON(m); err != nil {
			log.Println(err)
		}
	}
}
