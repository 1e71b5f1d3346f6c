// Package mqtt provides MQTT client connectivity for the thermostat bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS validation
//   - Topic subscriptions, restored after every reconnect
//   - Last Will and Testament (LWT) on the bridge availability topic
//
// # Architecture
//
// The same broker carries two kinds of traffic:
//
//	Device relay ──► devicebus ──► thermostat bridge ──► Home Assistant
//	Device relay ◄── devicebus ◄── thermostat bridge ◄── Home Assistant
//
// Availability payloads are the plain strings "online" and "offline" so
// controllers can use the status topic directly as an availability topic.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.StatusTopic("graylogic/climate", "loc-1"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("graylogic/climate/loc-1/+/thermostat/+", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
