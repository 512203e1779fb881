package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
door:
  id: "garden"
  host: "192.168.1.50"
  keep_alive: 45s
  min_spacing: 100ms
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "127.0.0.1"
  port: 9000
schedule:
  apply_on_start: true
  inside:
    monday:
      - from: "06:00"
        to: "20:00"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Door.ID != "garden" {
		t.Errorf("Door.ID = %q, want %q", cfg.Door.ID, "garden")
	}
	if cfg.Door.Host != "192.168.1.50" {
		t.Errorf("Door.Host = %q, want %q", cfg.Door.Host, "192.168.1.50")
	}
	if cfg.Door.KeepAlive != 45*time.Second {
		t.Errorf("Door.KeepAlive = %v, want 45s", cfg.Door.KeepAlive)
	}
	if cfg.Door.MinSpacing != 100*time.Millisecond {
		t.Errorf("Door.MinSpacing = %v, want 100ms", cfg.Door.MinSpacing)
	}
	// Unset durations keep their defaults.
	if cfg.Door.ReconnectDelay != 30*time.Second {
		t.Errorf("Door.ReconnectDelay = %v, want 30s", cfg.Door.ReconnectDelay)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}

	zones, err := cfg.Schedule.Zones()
	if err != nil {
		t.Fatalf("Schedule.Zones() error = %v", err)
	}
	if got := zones[schedule.ZoneInside][time.Monday]; len(got) != 1 || got[0].End.Hour != 20 {
		t.Errorf("inside Monday windows = %v", got)
	}
	if _, ok := zones[schedule.ZoneOutside]; ok {
		t.Error("outside zone present without configuration")
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
door:
  port: 3000
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected validation error for missing door.host, got nil")
	}
	if !strings.Contains(err.Error(), "door.host") {
		t.Errorf("Load() error = %v, want mention of door.host", err)
	}
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv("PETDOOR_DOOR_PORT", "three-thousand")
	_, err := Load(writeConfig(t, "door:\n  host: door.local\n"))
	if err == nil {
		t.Error("Load() expected error for non-numeric PETDOOR_DOOR_PORT, got nil")
	}
}

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Door.Host = "door.local"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing door host",
			mutate:  func(c *Config) { c.Door.Host = "" },
			wantErr: "door.host",
		},
		{
			name:    "door id with topic separator",
			mutate:  func(c *Config) { c.Door.ID = "front/back" },
			wantErr: "door.id",
		},
		{
			name:    "door port out of range",
			mutate:  func(c *Config) { c.Door.Port = 70000 },
			wantErr: "door.port",
		},
		{
			name:    "negative keepalive",
			mutate:  func(c *Config) { c.Door.KeepAlive = -time.Second },
			wantErr: "door.keep_alive",
		},
		{
			name:    "zero ping threshold",
			mutate:  func(c *Config) { c.Door.PingFailureThreshold = 0 },
			wantErr: "door.ping_failure_threshold",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name: "database disabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = false
				c.Database.Path = ""
			},
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: "api.port",
		},
		{
			name: "api disabled ignores port",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.API.Port = 0
			},
		},
		{
			name:    "influxdb enabled without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "bad schedule day",
			mutate: func(c *Config) {
				c.Schedule.Outside = map[string][]schedule.Span{"someday": {{From: "08:00", To: "09:00"}}}
			},
			wantErr: "schedule.outside",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Door.Host = ""
	cfg.MQTT.QoS = 5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"door.host", "mqtt.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("PETDOOR_DOOR_ID", "back")
	t.Setenv("PETDOOR_DOOR_HOST", "10.0.0.9")
	t.Setenv("PETDOOR_DOOR_PORT", "3001")
	t.Setenv("PETDOOR_DATABASE_PATH", "/custom/path.db")
	t.Setenv("PETDOOR_MQTT_HOST", "mqtt.example.com")
	t.Setenv("PETDOOR_MQTT_USERNAME", "testuser")
	t.Setenv("PETDOOR_MQTT_PASSWORD", "testpass")
	t.Setenv("PETDOOR_API_HOST", "192.168.1.1")
	t.Setenv("PETDOOR_API_PORT", "9100")
	t.Setenv("PETDOOR_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("PETDOOR_LOG_LEVEL", "debug")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	tests := []struct {
		field string
		got   any
		want  any
	}{
		{"Door.ID", cfg.Door.ID, "back"},
		{"Door.Host", cfg.Door.Host, "10.0.0.9"},
		{"Door.Port", cfg.Door.Port, 3001},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 9100},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.field, tt.got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Door.Port != 3000 {
		t.Errorf("defaultConfig Door.Port = %d, want 3000", cfg.Door.Port)
	}
	if cfg.Door.RefreshInterval != 300*time.Second {
		t.Errorf("defaultConfig Door.RefreshInterval = %v, want 300s", cfg.Door.RefreshInterval)
	}
	if cfg.Door.MinSpacing != 250*time.Millisecond {
		t.Errorf("defaultConfig Door.MinSpacing = %v, want 250ms", cfg.Door.MinSpacing)
	}
	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.MQTT.Auth.Password = "hunter2"
	cfg.InfluxDB.Token = "influx-token"

	out := cfg.String()
	for _, secret := range []string{"hunter2", "influx-token"} {
		if strings.Contains(out, secret) {
			t.Errorf("String() leaked %q", secret)
		}
	}
	if !strings.Contains(out, "door.local") {
		t.Error("String() missing door host")
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Error("String() modified the receiver")
	}
}
