package mqtt

import "fmt"

// TopicPrefixHome is the root of every topic this agent publishes.
const TopicPrefixHome = "home"

// Topics provides builders for the agent's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{HomeID: "home-1", DeviceID: "living-room"}
//	topics.SensorReading()
//	// Returns: "home/home-1/sensors/living-room/reading"
type Topics struct {
	HomeID   string
	DeviceID string
}

// SensorReading returns the topic for periodic readings.
//
// Example: home/home-1/sensors/living-room/reading
func (t Topics) SensorReading() string {
	return fmt.Sprintf("%s/%s/sensors/%s/reading", TopicPrefixHome, t.HomeID, t.DeviceID)
}

// DeviceStatus returns the retained online/offline topic, also used for the
// Last Will.
//
// Example: home/home-1/devices/living-room/status
func (t Topics) DeviceStatus() string {
	return fmt.Sprintf("%s/%s/devices/%s/status", TopicPrefixHome, t.HomeID, t.DeviceID)
}
