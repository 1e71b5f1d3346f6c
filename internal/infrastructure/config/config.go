package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the thermostat bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Thermostat ThermostatConfig `yaml:"thermostat"`
	DeviceBus  DeviceBusConfig  `yaml:"devicebus"`
}

// SiteConfig identifies the physical location whose devices are bridged.
type SiteConfig struct {
	// ID is the location identifier used in every MQTT topic.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// String returns a representation with the password masked.
func (a MQTTAuthConfig) String() string {
	password := ""
	if a.Password != "" {
		password = "[REDACTED]"
	}
	return fmt.Sprintf("MQTTAuthConfig{Username:%q, Password:%s}", a.Username, password)
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the read-only HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains the state stream settings served under the API.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"` // seconds
	PongTimeout    int `yaml:"pong_timeout"`  // seconds
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ThermostatConfig controls how thermostats are presented on the bus.
type ThermostatConfig struct {
	// TopicPrefix is the root of all state and command topics.
	// Topics look like {prefix}/{site}/{device}/thermostat/{suffix}.
	TopicPrefix string `yaml:"topic_prefix"`

	// DiscoveryPrefix is the controller's discovery root (Home Assistant: "homeassistant").
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// Discovery enables publishing retained climate discovery payloads.
	Discovery bool `yaml:"discovery"`

	// RefreshInterval is how often a full state publish is forced (seconds).
	// 0 disables the periodic refresh.
	RefreshInterval int `yaml:"refresh_interval"`

	// Retain marks state publishes as retained.
	Retain bool `yaml:"retain"`
}

// DeviceBusConfig controls the upstream device-state relay.
type DeviceBusConfig struct {
	// TopicPrefix is the root the relay publishes device snapshots under.
	TopicPrefix string `yaml:"topic_prefix"`

	// StartupTimeout bounds how long startup waits for thermostats to appear (seconds).
	StartupTimeout int `yaml:"startup_timeout"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_MQTT_HOST
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
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Home",
		},
		Database: DatabaseConfig{
			Path:        "./data/thermostat.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-thermostat",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Thermostat: ThermostatConfig{
			TopicPrefix:     "graylogic/climate",
			DiscoveryPrefix: "homeassistant",
			Discovery:       true,
			RefreshInterval: 300,
		},
		DeviceBus: DeviceBusConfig{
			TopicPrefix:    "graylogic/devicebus",
			StartupTimeout: 30,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GRAYLOGIC_SITE_ID"); v != "" {
		cfg.Site.ID = v
	}

	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("GRAYLOGIC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
// All problems are collected and reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	} else if strings.ContainsAny(c.Site.ID, "/+#") {
		errs = append(errs, "site.id must not contain MQTT separators or wildcards")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.Enabled {
		if c.WebSocket.MaxMessageSize < 1 {
			errs = append(errs, "websocket.max_message_size must be positive")
		}
		if c.WebSocket.PingInterval < 1 || c.WebSocket.PongTimeout < 1 {
			errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	if c.Thermostat.TopicPrefix == "" {
		errs = append(errs, "thermostat.topic_prefix is required")
	} else if strings.ContainsAny(c.Thermostat.TopicPrefix, "+#") {
		errs = append(errs, "thermostat.topic_prefix must not contain wildcards")
	}
	if c.Thermostat.Discovery && c.Thermostat.DiscoveryPrefix == "" {
		errs = append(errs, "thermostat.discovery_prefix is required when discovery is enabled")
	}
	if c.Thermostat.RefreshInterval < 0 {
		errs = append(errs, "thermostat.refresh_interval must not be negative")
	}

	if c.DeviceBus.TopicPrefix == "" {
		errs = append(errs, "devicebus.topic_prefix is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRefreshInterval returns the periodic full-publish interval as a Duration.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Thermostat.RefreshInterval) * time.Second
}

// GetStartupTimeout returns the device bus startup wait as a Duration.
func (c *Config) GetStartupTimeout() time.Duration {
	return time.Duration(c.DeviceBus.StartupTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
