package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps outbound payloads. The largest thing the bridge
// sends is a full schedule state, a few kilobytes at most.
const maxPayloadSize = 256 << 10

// Publish sends payload to topic and waits for the broker to accept it.
// State topics are published retained so a new subscriber sees the door
// immediately; acks and events are not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case len(payload) > maxPayloadSize:
		return fmt.Errorf("%w: %w: %d bytes", ErrPublishFailed, ErrPayloadTooLarge, len(payload))
	case !c.IsConnected():
		return ErrNotConnected
	}

	if err := wait(c.paho.Publish(topic, qos, retained, payload), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// PublishString publishes a text payload.
func (c *Client) PublishString(topic, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}

// PublishJSON encodes v and publishes it at the configured QoS.
func (c *Client) PublishJSON(topic string, v any, retained bool) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %T: %w", ErrPublishFailed, v, err)
	}
	return c.Publish(topic, payload, byte(c.cfg.QoS), retained)
}
