package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the greenhouse gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Notify   NotifyConfig   `yaml:"notify"`
	Alerting AlertingConfig `yaml:"alerting"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	Topics    MQTTTopicsConfig    `yaml:"topics"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keepalive"`
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

// MQTTTopicsConfig contains the fixed topic set the gateway works with.
//
// Environment, Spectral, and SensorNode are the inbound telemetry topics,
// each owning one field group of the device snapshot. Command is the single
// outbound topic carrying rw_prot control envelopes. Status carries the
// gateway's own online/offline announcements (and LWT).
type MQTTTopicsConfig struct {
	Environment string `yaml:"environment"`
	Spectral    string `yaml:"spectral"`
	SensorNode  string `yaml:"sensor_node"`
	Command     string `yaml:"command"`
	Status      string `yaml:"status"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"` // seconds
	MaxDelay     int `yaml:"max_delay"`     // seconds
	MaxAttempts  int `yaml:"max_attempts"`  // 0 = retry forever
}

// DatabaseConfig contains SQLite database settings for the alert history store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for sensor persistence.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// NotifyConfig contains outbound notification (webhook) settings.
type NotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// AlertingConfig contains threshold alerting settings.
type AlertingConfig struct {
	Enabled         bool `yaml:"enabled"`
	CooldownMinutes int  `yaml:"cooldown_minutes"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY
// For example: GREENHOUSE_MQTT_HOST, GREENHOUSE_INFLUXDB_TOKEN
//
// Validation is eager: a missing or out-of-range value fails here, before
// any connection attempt is made.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults. Topic defaults match
// the deployed device firmware; broker host, credentials, and the
// webhook URL have no defaults and must be provided before Validate
// passes.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "greenhouse-001",
			Name:     "Meime Farm",
			Timezone: "Asia/Shanghai",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Port:     8883,
				TLS:      true,
				ClientID: "greenhouse-gateway",
			},
			Topics: MQTTTopicsConfig{
				Environment: "meimefarm/basic_env_data",
				Spectral:    "meimefarm/spectral_data",
				SensorNode:  "meimefarm/sensor_node_data",
				Command:     "data/set",
				Status:      "meimefarm/gateway/status",
			},
			QoS:       1,
			KeepAlive: 60,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     10,
				MaxAttempts:  10,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/greenhouse.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Notify: NotifyConfig{
			Timeout: 10,
		},
		Alerting: AlertingConfig{
			Enabled:         true,
			CooldownMinutes: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GREENHOUSE_SECTION_KEY.
// An override that cannot be parsed is an error; a misconfigured
// environment must never fall back to defaults silently.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("GREENHOUSE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GREENHOUSE_MQTT_PORT: invalid port %q", v)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("GREENHOUSE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GREENHOUSE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("GREENHOUSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("GREENHOUSE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Notification webhook (the URL carries a secret key)
	if v := os.Getenv("GREENHOUSE_NOTIFY_WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}

	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA timezone", c.Site.Timezone))
		}
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required (set GREENHOUSE_MQTT_HOST)")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Auth.Username == "" {
		errs = append(errs, "mqtt.auth.username is required (set GREENHOUSE_MQTT_USERNAME)")
	}
	if c.MQTT.Auth.Password == "" {
		errs = append(errs, "mqtt.auth.password is required (set GREENHOUSE_MQTT_PASSWORD)")
	}
	if c.MQTT.Topics.Environment == "" {
		errs = append(errs, "mqtt.topics.environment is required")
	}
	if c.MQTT.Topics.Spectral == "" {
		errs = append(errs, "mqtt.topics.spectral is required")
	}
	if c.MQTT.Topics.SensorNode == "" {
		errs = append(errs, "mqtt.topics.sensor_node is required")
	}
	if c.MQTT.Topics.Command == "" {
		errs = append(errs, "mqtt.topics.command is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.KeepAlive < 0 {
		errs = append(errs, "mqtt.keepalive must be non-negative")
	}
	if c.MQTT.Reconnect.InitialDelay < 0 || c.MQTT.Reconnect.MaxDelay < 0 {
		errs = append(errs, "mqtt.reconnect delays must be non-negative")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set GREENHOUSE_INFLUXDB_TOKEN)")
		}
	}

	// Notification validation (only when enabled)
	if c.Notify.Enabled && c.Notify.WebhookURL == "" {
		errs = append(errs, "notify.webhook_url is required when notify is enabled (set GREENHOUSE_NOTIFY_WEBHOOK_URL)")
	}

	// Alerting validation
	if c.Alerting.Enabled && c.Alerting.CooldownMinutes <= 0 {
		errs = append(errs, "alerting.cooldown_minutes must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the site timezone as a *time.Location.
// Falls back to UTC if the timezone is empty or invalid.
func (c *Config) Location() *time.Location {
	if c.Site.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KeepAliveDuration returns the MQTT keepalive interval as a Duration.
func (c MQTTConfig) KeepAliveDuration() time.Duration {
	return time.Duration(c.KeepAlive) * time.Second
}

// CooldownDuration returns the alert cooldown window as a Duration.
func (c *Config) CooldownDuration() time.Duration {
	return time.Duration(c.Alerting.CooldownMinutes) * time.Minute
}

// TimeoutDuration returns the webhook request timeout as a Duration.
func (c NotifyConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
