package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the window sensor node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device       DeviceConfig       `yaml:"device"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Database     DatabaseConfig     `yaml:"database"`
	InfluxDB     InfluxDBConfig     `yaml:"influxdb"`
	Logging      LoggingConfig      `yaml:"logging"`
	Firmware     FirmwareConfig     `yaml:"firmware"`
	Translations TranslationsConfig `yaml:"translations"`
}

// DeviceConfig contains the per-device provisioning data.
type DeviceConfig struct {
	WindowID  string         `yaml:"window_id"`
	Language  string         `yaml:"language"`
	TopicRoot string         `yaml:"topic_root"`
	Position  PositionConfig `yaml:"position"`
}

// PositionConfig describes where the sensor is mounted.
type PositionConfig struct {
	// Window is a position code resolved through the translation catalog
	// (e.g. "left", "right", "single").
	Window string `yaml:"window"`
	Floor  string `yaml:"floor"`
	Room   string `yaml:"room"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ClientIDPrefix is combined with a random suffix on every connect
	// attempt so two nodes (or two boots) never share a client ID.
	ClientIDPrefix string `yaml:"client_id_prefix"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// The username is always the device window ID.
type MQTTAuthConfig struct {
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection settings.
type MQTTReconnectConfig struct {
	// DelaySeconds is the fixed wait between failed connect attempts.
	DelaySeconds int `yaml:"delay_seconds"`

	// PollWindowMS is how long inbound messages are serviced per loop pass.
	PollWindowMS int `yaml:"poll_window_ms"`
}

// DatabaseConfig contains SQLite settings for the durable flag store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains settings for the optional transition history mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// FirmwareConfig contains firmware update hand-off settings.
type FirmwareConfig struct {
	// UpdateCommand is executed at boot when an update is pending.
	// Empty leaves the flag in place for an external updater.
	UpdateCommand []string `yaml:"update_command"`

	// UpdateTimeout bounds the update command (seconds).
	UpdateTimeout int `yaml:"update_timeout"`
}

// TranslationsConfig points at an optional overlay for the built-in catalog.
type TranslationsConfig struct {
	File string `yaml:"file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: WINDOWSENSOR_SECTION_KEY
// For example: WINDOWSENSOR_MQTT_HOST, WINDOWSENSOR_MQTT_PASSWORD
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
			Language:  "en",
			TopicRoot: "/windowSensor/",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				ClientIDPrefix: "windowsensor-",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				DelaySeconds: 5,
				PollWindowMS: 100,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/windowsensor.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Firmware: FirmwareConfig{
			UpdateTimeout: 300,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WINDOWSENSOR_WINDOW_ID"); v != "" {
		cfg.Device.WindowID = v
	}
	if v := os.Getenv("WINDOWSENSOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("WINDOWSENSOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("WINDOWSENSOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("WINDOWSENSOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.WindowID == "" {
		errs = append(errs, "device.window_id is required")
	}
	if c.Device.Language == "" {
		errs = append(errs, "device.language is required")
	}
	if c.Device.TopicRoot == "" {
		errs = append(errs, "device.topic_root is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.DelaySeconds <= 0 {
		errs = append(errs, "mqtt.reconnect.delay_seconds must be positive")
	}
	if c.MQTT.Reconnect.PollWindowMS < 0 {
		errs = append(errs, "mqtt.reconnect.poll_window_ms must not be negative")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReconnectDelay returns the fixed reconnect delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.DelaySeconds) * time.Second
}

// GetPollWindow returns the inbound service window as a Duration.
func (c *Config) GetPollWindow() time.Duration {
	return time.Duration(c.MQTT.Reconnect.PollWindowMS) * time.Millisecond
}

// GetUpdateTimeout returns the firmware update command timeout as a Duration.
func (c *Config) GetUpdateTimeout() time.Duration {
	return time.Duration(c.Firmware.UpdateTimeout) * time.Second
}
