package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported publisher transports.
const (
	TransportMQTT  = "mqtt"
	TransportKafka = "kafka"
)

// maxI2CAddress is the largest 7-bit bus address.
const maxI2CAddress = 0x7F

// Config is the root configuration structure for the climate agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Publisher PublisherConfig `yaml:"publisher"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Journal   JournalConfig   `yaml:"journal"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies this agent on the broker.
type DeviceConfig struct {
	ID     string `yaml:"id"`
	HomeID string `yaml:"home_id"`
	Label  string `yaml:"label"`
}

// SensorConfig contains bus and sampling settings.
type SensorConfig struct {
	// Bus is the periph bus name ("1", "/dev/i2c-1"). Empty selects the first bus.
	Bus     string `yaml:"bus"`
	Address int    `yaml:"address"`

	// Simulate replaces the hardware bus with an in-memory sensor.
	Simulate bool `yaml:"simulate"`

	// Interval is the sampling period in seconds.
	Interval int `yaml:"interval"`

	Offsets OffsetsConfig `yaml:"offsets"`

	// InitAttempts bounds driver initialisation attempts at startup.
	InitAttempts int `yaml:"init_attempts"`
}

// OffsetsConfig contains static calibration corrections.
type OffsetsConfig struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
}

// PublisherConfig selects the broker transport.
type PublisherConfig struct {
	Transport string `yaml:"transport"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
	Retain bool             `yaml:"retain"`

	// KeepAlive in seconds.
	KeepAlive int `yaml:"keepalive"`

	// ConnectTimeout bounds the initial connect in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KafkaConfig contains Kafka producer settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`

	// Topic overrides the reading topic. Empty uses the MQTT-style topic
	// with slashes replaced by dots.
	Topic string `yaml:"topic"`

	// WriteTimeout in seconds.
	WriteTimeout int `yaml:"write_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// JournalConfig contains SQLite diagnostics journal settings.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// KeepRuns is how many past runs survive pruning at startup. 0 keeps all.
	KeepRuns int `yaml:"keep_runs"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CLIMATE_SECTION_KEY
// For example: CLIMATE_DEVICE_ID, CLIMATE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Label: "AHT20 climate sensor",
		},
		Sensor: SensorConfig{
			Bus:          "1",
			Address:      0x38,
			Interval:     30,
			InitAttempts: 3,
		},
		Publisher: PublisherConfig{
			Transport: TransportMQTT,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS:            1,
			KeepAlive:      60,
			ConnectTimeout: 10,
		},
		Kafka: KafkaConfig{
			WriteTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Journal: JournalConfig{
			Path:        "./data/climate.db",
			WALMode:     true,
			BusyTimeout: 5,
			KeepRuns:    50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLIMATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("CLIMATE_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("CLIMATE_HOME_ID"); v != "" {
		cfg.Device.HomeID = v
	}

	// Sensor
	if v := os.Getenv("CLIMATE_SENSOR_BUS"); v != "" {
		cfg.Sensor.Bus = v
	}
	if v, err := strconv.ParseBool(os.Getenv("CLIMATE_SENSOR_SIMULATE")); err == nil {
		cfg.Sensor.Simulate = v
	}

	// Publisher
	if v := os.Getenv("CLIMATE_PUBLISHER_TRANSPORT"); v != "" {
		cfg.Publisher.Transport = v
	}

	// MQTT
	if v := os.Getenv("CLIMATE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("CLIMATE_MQTT_PORT")); err == nil {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("CLIMATE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CLIMATE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Kafka
	if v := os.Getenv("CLIMATE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}

	// InfluxDB
	if v := os.Getenv("CLIMATE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Journal
	if v := os.Getenv("CLIMATE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Logging
	if v := os.Getenv("CLIMATE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Device validation
	if c.Device.ID == "" {
		errs = append(errs, "device.id is required (set CLIMATE_DEVICE_ID environment variable)")
	}
	if c.Device.HomeID == "" {
		errs = append(errs, "device.home_id is required")
	}

	// Sensor validation
	if c.Sensor.Address < 1 || c.Sensor.Address > maxI2CAddress {
		errs = append(errs, "sensor.address must be between 0x01 and 0x7F")
	}
	if c.Sensor.Interval < 1 || c.Sensor.Interval > 3600 {
		errs = append(errs, "sensor.interval must be between 1 and 3600 seconds")
	}
	if c.Sensor.InitAttempts < 1 {
		errs = append(errs, "sensor.init_attempts must be at least 1")
	}

	// Publisher validation
	switch c.Publisher.Transport {
	case TransportMQTT:
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required")
		}
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka.brokers is required when publisher.transport is kafka")
		}
	default:
		errs = append(errs, fmt.Sprintf("publisher.transport %q is not one of mqtt, kafka", c.Publisher.Transport))
	}

	// MQTT validation
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SampleInterval returns the sampling period as a Duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sensor.Interval) * time.Second
}

// ClientID returns the configured MQTT client id, or climate-{device_id}.
func (c *Config) ClientID() string {
	if c.MQTT.Broker.ClientID != "" {
		return c.MQTT.Broker.ClientID
	}
	return "climate-" + c.Device.ID
}

// GetConnectTimeout returns the initial broker connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.MQTT.ConnectTimeout) * time.Second
}

// GetKeepAlive returns the MQTT keepalive as a Duration.
func (c *Config) GetKeepAlive() time.Duration {
	return time.Duration(c.MQTT.KeepAlive) * time.Second
}

// GetKafkaWriteTimeout returns the Kafka write timeout as a Duration.
func (c *Config) GetKafkaWriteTimeout() time.Duration {
	return time.Duration(c.Kafka.WriteTimeout) * time.Second
}
