// Package mqtt provides MQTT client connectivity for the pet door bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Last Will and Testament (LWT) for offline detection
//
// # Architecture
//
// The bridge publishes door state and health as retained messages and
// takes commands from per-door command topics:
//
//	Door ↔ petdoor.Client ↔ bridge ↔ MQTT Broker ↔ Home automation
//
// Topic layout is defined by Topics.
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on the same host
//   - Anyone who can publish to petdoor/command/# can open the door; restrict it with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands("garden"), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.PublishJSON(mqtt.Topics{}.State("garden", "battery"), battery, true)
package mqtt
