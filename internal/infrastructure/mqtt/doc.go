// Package mqtt publishes climate readings to an MQTT broker.
//
// This package manages:
//   - Asynchronous connection to the broker, driven by the sampling loop
//   - Message publishing with QoS guarantees
//   - Retained online/offline status with a Last Will for crash detection
//
// # Connection Model
//
// Paho's own reconnect logic is disabled. Connect starts an attempt and
// returns; paho callbacks post events to a buffered channel; PumpEvents,
// called from the loop goroutine, applies them. The loop calls Connect
// again whenever State reports Disconnected or Errored.
//
//	Sampling loop → Client.Publish → paho → Broker
//	paho callbacks → events chan → Client.PumpEvents (loop goroutine)
//
// # Topics
//
//	home/{home_id}/sensors/{device_id}/reading   readings
//	home/{home_id}/devices/{device_id}/status    retained online/offline, LWT
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) whenever the broker is not on the host
//   - Credentials should come from CLIMATE_MQTT_USERNAME / CLIMATE_MQTT_PASSWORD
//
// # Usage
//
//	topics := mqtt.Topics{HomeID: cfg.Device.HomeID, DeviceID: cfg.Device.ID}
//	client := mqtt.New(cfg.MQTT, cfg.ClientID(), topics)
//	if err := client.Connect(); err != nil {
//	    return err
//	}
//	if err := client.WaitConnected(cfg.GetConnectTimeout()); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err := client.Publish(topics.SensorReading(), payload, 1, false)
package mqtt
