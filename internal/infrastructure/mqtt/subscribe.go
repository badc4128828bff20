package mqtt

import (
	"context"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe registers topic on the broker. Matching messages, including a
// retained value delivered right after subscribing, are queued on Messages().
//
// Subscriptions belong to this session only; a new session must subscribe again.
func (s *Session) Subscribe(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	token := s.client.Subscribe(topic, qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		s.enqueue(Message{
			Topic:   msg.Topic(),
			Payload: append([]byte(nil), msg.Payload()...),
		})
	})
	if err := waitToken(context.Background(), token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}
