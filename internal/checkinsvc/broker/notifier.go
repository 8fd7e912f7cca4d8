package broker

import (
	"encoding/json"

	"github.com/clusterpass/checkin-services/internal/comm"
	"github.com/nats-io/nats.go"
)

// NatsNotifier delivers near-capacity notices by publishing them for the
// websocket gateway to broadcast. It is constructed before the allocation
// core so the core can take it as a plain Notifier.
type NatsNotifier struct {
	Conn *nats.Conn
}

func NewNatsNotifier(nc *nats.Conn) *NatsNotifier {
	return &NatsNotifier{Conn: nc}
}

func (n *NatsNotifier) Send(poolCode string, message string) error {
	data, err := json.Marshal(comm.CapacityNotice{Pool: poolCode, Message: message})
	if err != nil {
		return err
	}

	env := comm.WSMessage{
		Type: "capacity-notice",
		Data: data,
	}

	bytes, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return n.Conn.Publish(TopicCheckinService, bytes)
}
