package mqtt

import (
	"context"
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message and waits for the broker acknowledgment.
//
// An empty payload is valid: published retained, it clears the retained
// value on the broker.
//
// Returns:
//   - error: nil on success, or wrapped ErrPublishFailed / ErrNotConnected
func (s *Session) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !s.IsConnected() {
		return ErrNotConnected
	}

	token := s.client.Publish(topic, qos, retained, payload)
	if err := waitToken(context.Background(), token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
