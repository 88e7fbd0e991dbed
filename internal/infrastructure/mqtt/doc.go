// Package mqtt provides MQTT client connectivity for Ventana Core.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Ventana uses MQTT as the change-notification transport for the hub record
// store. The ingest service publishes one message per inserted or updated row
// on a per-table, per-key topic; Ventana Core subscribes to the keys it is
// currently displaying and publishes the rows it mutates itself.
//
//	Ingest service ─┐
//	                ├─▶ MQTT Broker ─▶ Ventana Core (live feeds)
//	Ventana Core  ──┘
//
// Broker delivery is ordered per topic, which gives the store its
// order-preserving-per-key guarantee.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.RowChange("telemetry", deviceID)
//	err = client.Subscribe(topic, 1, func(topic string, payload []byte) error {
//	    // payload is the full row as JSON
//	    return nil
//	})
package mqtt
