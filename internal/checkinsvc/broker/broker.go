package broker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/clusterpass/checkin-services/internal/checkinsvc/service"
	"github.com/clusterpass/checkin-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Topics shared with socketsvc.
const (
	TopicSocketService  = "socket.service"  // requests from the websocket gateway
	TopicCheckinService = "checkin.service" // responses and capacity notices
)

type Broker struct {
	Conn    *nats.Conn
	Checkin *service.CheckinService
}

func NewBroker(nc *nats.Conn, checkin *service.CheckinService) *Broker {
	return &Broker{
		Conn:    nc,
		Checkin: checkin,
	}
}

// SubscribeSocketService consumes requests forwarded by the websocket gateway.
func (b *Broker) SubscribeSocketService(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// handles message coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	err := json.Unmarshal(msgNat.Data, &msg)
	if err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	switch msg.Type {
	case "status":
		var request comm.StatusRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding status request: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		info, err := b.Checkin.Status(ctx, request.UserId)
		if err != nil {
			log.Errorf("Error [Checkin.Status] user %d: %s", request.UserId, err)
			return
		}

		b.publishResponse("status-response", info, msg.SocketId)
	case "checkin":
		var request comm.CheckinRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding checkin request: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		ok := b.Checkin.CheckIn(ctx, request.UserId, request.CardId)
		b.publishResponse("checkin-response", comm.CheckinResult{Ok: ok}, msg.SocketId)
	case "checkout":
		var request comm.CheckoutRequest
		if err := json.Unmarshal(msg.Data, &request); err != nil {
			log.Errorf("Error decoding checkout request: %s", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result := comm.CheckoutResult{Ok: true}
		if err := b.Checkin.CheckOut(ctx, request.UserId); err != nil {
			result.Ok = false
			result.Error = checkoutErrorCode(err)
		}

		b.publishResponse("checkout-response", result, msg.SocketId)
	default:
		log.Warnf("unknown message type received: %s", msg.Type)
	}
}

func checkoutErrorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrNoActiveCard):
		return "not_found"
	default:
		return "internal"
	}
}

// publishResponse wraps a payload in the WSMessage envelope and sends it back
// toward the gateway.
func (b *Broker) publishResponse(msgType string, payload interface{}, socketId string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("Error marshaling %s payload: %s", msgType, err)
		return
	}

	env := comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	bytes, err := json.Marshal(env)
	if err != nil {
		log.Errorf("Error marshaling %s envelope: %s", msgType, err)
		return
	}

	if err := b.Publish(TopicCheckinService, bytes); err != nil {
		log.Errorf("Error publishing %s: %s", msgType, err)
	}
}

// publish message to socket service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
