package mqtt

import (
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/publish"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "home/home-1/sensors/living-room/reading")
//   - payload: The message payload (typically JSON, max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, otherwise an error matching publish.ErrPublish
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return fmt.Errorf("%w: %w", publish.ErrPublish, ErrInvalidTopic)
	}
	if qos > maxQoS {
		return fmt.Errorf("%w: %w", publish.ErrPublish, ErrInvalidQoS)
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %w: payload size %d exceeds maximum %d bytes",
			publish.ErrPublish, ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if c.state != publish.StateConnected {
		return fmt.Errorf("%w: %w (state %s)", publish.ErrPublish, ErrNotConnected, c.state)
	}
	if !c.client.IsConnected() {
		// The lost-connection event has not been pumped yet.
		c.state = publish.StateDisconnected
		return fmt.Errorf("%w: %w", publish.ErrPublish, ErrNotConnected)
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: %w: timeout after %v", publish.ErrPublish, ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w: %w", publish.ErrPublish, ErrPublishFailed, err)
	}

	return nil
}
