package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  name: "bench-1"
io:
  channels_file: "/tmp/io.json"
udp:
  enabled: true
  port: 50000
  tx_port: 50001
api:
  host: "0.0.0.0"
  port: 8080
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Name != "bench-1" {
		t.Errorf("Device.Name = %q, want %q", cfg.Device.Name, "bench-1")
	}
	if cfg.IO.ChannelsFile != "/tmp/io.json" {
		t.Errorf("IO.ChannelsFile = %q, want %q", cfg.IO.ChannelsFile, "/tmp/io.json")
	}
	if cfg.UDP.Port != 50000 || cfg.UDP.TxPort != 50001 {
		t.Errorf("UDP ports = %d/%d, want 50000/50001", cfg.UDP.Port, cfg.UDP.TxPort)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `device: {name: "bench-1"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.UDP.Port != 50000 {
		t.Errorf("default UDP.Port = %d, want 50000", cfg.UDP.Port)
	}
	if cfg.UDP.BroadcastAddr != "255.255.255.255" {
		t.Errorf("default UDP.BroadcastAddr = %q", cfg.UDP.BroadcastAddr)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("default API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled {
		t.Error("optional bridges must default to disabled")
	}
	if !cfg.Database.WALMode {
		t.Error("default Database.WALMode = false, want true")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.RecentSize != 200 {
		t.Errorf("logging defaults = %q/%d", cfg.Logging.Level, cfg.Logging.RecentSize)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
device:
  name: ""
database:
  path: ""
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINILAB_DATABASE_PATH", "/override/path.db")
	t.Setenv("MINILAB_UDP_PORT", "51000")
	t.Setenv("MINILAB_MQTT_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, `
device: {name: "bench-1"}
database: {path: "/file/path.db"}
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/override/path.db" {
		t.Errorf("Database.Path = %q, env override lost", cfg.Database.Path)
	}
	if cfg.UDP.Port != 51000 {
		t.Errorf("UDP.Port = %d, env override lost", cfg.UDP.Port)
	}
	if cfg.MQTT.Password != "secret" {
		t.Errorf("MQTT.Password not overridden")
	}
}

func TestValidate_PortRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"api port too high", func(c *Config) { c.API.Port = 70000 }, true},
		{"udp port zero while enabled", func(c *Config) { c.UDP.Port = 0 }, true},
		{"udp port zero while disabled", func(c *Config) { c.UDP.Enabled = false; c.UDP.Port = 0 }, false},
		{"bad qos while enabled", func(c *Config) { c.MQTT.Enabled = true; c.MQTT.QoS = 3 }, true},
		{"influx enabled without url", func(c *Config) { c.InfluxDB.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTimeoutHelpers(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetPublishInterval(); got != time.Second {
		t.Errorf("GetPublishInterval() = %v, want 1s", got)
	}
	cfg.MQTT.PublishInterval = 0
	if got := cfg.GetPublishInterval(); got != time.Second {
		t.Errorf("GetPublishInterval() with zero config = %v, want 1s fallback", got)
	}
}

func TestChannelDocument(t *testing.T) {
	tmpDir := t.TempDir()
	ioPath := filepath.Join(tmpDir, "io.json")
	if err := os.WriteFile(ioPath, []byte(`[{"id":"vin"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	cfg.IO.ChannelsFile = ioPath
	if got := string(cfg.ChannelDocument()); got != `[{"id":"vin"}]` {
		t.Errorf("ChannelDocument() = %q", got)
	}

	cfg.IO.ChannelsFile = filepath.Join(tmpDir, "missing.json")
	if got := cfg.ChannelDocument(); got != nil {
		t.Errorf("ChannelDocument() for missing file = %q, want nil", got)
	}
}
