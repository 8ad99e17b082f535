package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for MiniLab Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	IO       IOConfig       `yaml:"io"`
	UDP      UDPConfig      `yaml:"udp"`
	API      APIConfig      `yaml:"api"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DeviceConfig identifies this bench device.
type DeviceConfig struct {
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"` // optional override of os.Hostname
}

// IOConfig locates the channel document. The document itself is free-form
// JSON (a bare channel array or an object with a "channels" array) and is
// parsed by the channel registry, not here.
type IOConfig struct {
	ChannelsFile string `yaml:"channels_file"`

	// Simulate backs local channels with the simulated converters
	// instead of real hardware.
	Simulate bool `yaml:"simulate"`
}

// UDPConfig contains the sync protocol settings.
type UDPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Port          int    `yaml:"port"`
	TxPort        int    `yaml:"tx_port"`
	BroadcastAddr string `yaml:"broadcast_addr"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// MQTTConfig contains the optional value-publisher bridge settings.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`

	// PublishInterval is the snapshot publish period in seconds.
	PublishInterval int `yaml:"publish_interval"`
}

// InfluxDBConfig contains the optional telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the remote-update history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// RecentSize is how many recent records the in-memory log ring keeps
	// for the API log view.
	RecentSize int `yaml:"recent_size"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern MINILAB_SECTION_KEY, for
// example MINILAB_DATABASE_PATH or MINILAB_UDP_PORT.
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

// defaultConfig returns a Config with sensible defaults. The defaults run
// a simulated, UDP-enabled device with history on and the optional
// MQTT/InfluxDB bridges off.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "minilab",
		},
		IO: IOConfig{
			ChannelsFile: "configs/io.json",
			Simulate:     true,
		},
		UDP: UDPConfig{
			Enabled:       true,
			Port:          50000,
			TxPort:        50001,
			BroadcastAddr: "255.255.255.255",
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		MQTT: MQTTConfig{
			Host:            "localhost",
			Port:            1883,
			ClientID:        "minilab-core",
			QoS:             1,
			TopicPrefix:     "minilab",
			PublishInterval: 1,
		},
		Database: DatabaseConfig{
			Path:        "./data/minilab.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			RecentSize: 200,
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MINILAB_IO_CHANNELS_FILE"); v != "" {
		cfg.IO.ChannelsFile = v
	}
	if v := os.Getenv("MINILAB_UDP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.UDP.Port = port
		}
	}
	if v := os.Getenv("MINILAB_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("MINILAB_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MINILAB_MQTT_HOST"); v != "" {
		cfg.MQTT.Host = v
	}
	if v := os.Getenv("MINILAB_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("MINILAB_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("MINILAB_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Device.Name == "" {
		errs = append(errs, "device.name is required")
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.UDP.Enabled {
		if c.UDP.Port < 1 || c.UDP.Port > 65535 {
			errs = append(errs, "udp.port must be between 1 and 65535")
		}
		if c.UDP.TxPort < 1 || c.UDP.TxPort > 65535 {
			errs = append(errs, "udp.tx_port must be between 1 and 65535")
		}
	}
	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ChannelDocument reads the channel document named by io.channels_file.
// A missing file is not an error: it yields an empty document, and the
// registry treats that as zero channels.
func (c *Config) ChannelDocument() []byte {
	data, err := os.ReadFile(c.IO.ChannelsFile)
	if err != nil {
		return nil
	}
	return data
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

// GetPublishInterval returns the MQTT publish period as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	if c.MQTT.PublishInterval <= 0 {
		return time.Second
	}
	return time.Duration(c.MQTT.PublishInterval) * time.Second
}
