// Package mqtt provides MQTT client connectivity for the greenhouse gateway.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with restore-on-reconnect
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The gateway is a client of an external broker. Telemetry arrives on three
// inbound topics (environment, spectral, sensor node) and control envelopes
// leave on a single command topic:
//
//	Device firmware ↔ MQTT Broker ↔ Greenhouse Gateway
//
// # Reconnection
//
// Reconnects follow an explicit ReconnectPolicy: exponential backoff from
// the configured initial delay up to the configured cap, with a bounded
// number of consecutive attempts. Once the budget is spent the client stops
// retrying and reports via SetOnGiveUp; recovery then requires a manual
// reconnect by the owner. The policy is a plain value and unit-testable
// without a broker.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe(cfg.MQTT.Topics.Environment, 1,
//	    func(topic string, payload []byte) error {
//	        return handleTelemetry(topic, payload)
//	    })
package mqtt
