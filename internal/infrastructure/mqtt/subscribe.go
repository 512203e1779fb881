package mqtt

import "fmt"

// Subscribe routes messages matching topic (wildcards allowed, e.g.
// Topics{}.AllCommands(doorID)) to handler. The subscription is
// remembered and replayed after a reconnect. Subscribing again to the
// same topic replaces the handler.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	switch {
	case topic == "":
		return ErrInvalidTopic
	case qos > maxQoS:
		return ErrInvalidQoS
	case handler == nil:
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	case !c.IsConnected():
		return ErrNotConnected
	}

	if err := wait(c.paho.Subscribe(topic, qos, c.dispatch(handler)), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}

	c.subsMu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.subsMu.Unlock()
	return nil
}

// Unsubscribe forgets topic and asks the broker to stop delivering it.
// Messages already in flight may still reach the old handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.subsMu.Lock()
	delete(c.subs, topic)
	c.subsMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := wait(c.paho.Unsubscribe(topic), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, topic, err)
	}
	return nil
}

// SubscriptionCount returns how many topics are being replayed on
// reconnect.
func (c *Client) SubscriptionCount() int {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	return len(c.subs)
}

// HasSubscription reports whether topic, as passed to Subscribe, is
// active.
func (c *Client) HasSubscription(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subs[topic]
	return ok
}
