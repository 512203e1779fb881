package mqtt

import "errors"

// Sentinel errors returned by Client. Compare with errors.Is.
var (
	ErrNotConnected      = errors.New("mqtt: broker not connected")
	ErrConnectionFailed  = errors.New("mqtt: cannot reach broker")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: qos must be 0, 1 or 2")

	ErrInvalidTopic    = errors.New("mqtt: empty topic")
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
