package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// Config is the root configuration structure for the pet door bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Door     DoorConfig     `yaml:"door"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// DoorConfig contains the door connection settings.
type DoorConfig struct {
	// ID names the door in MQTT topics, metrics and history rows.
	// Default: "petdoor"
	ID string `yaml:"id"`

	Host string `yaml:"host"`

	// Port is the door's TCP port.
	// Default: 3000
	Port int `yaml:"port"`

	// ConnectTimeout bounds each dial attempt.
	// Default: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReconnectDelay is the pause before reconnecting after a disconnect.
	// Default: 30s
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// KeepAlive is the idle time after the last write before a PING.
	// Default: 30s
	KeepAlive time.Duration `yaml:"keep_alive"`

	// PingTimeout is how long a PING may go unanswered.
	// Default: 5s
	PingTimeout time.Duration `yaml:"ping_timeout"`

	// ReceiptTimeout is how long a message may go unanswered before it is
	// retransmitted.
	// Default: 5s
	ReceiptTimeout time.Duration `yaml:"receipt_timeout"`

	// MinSpacing is the minimum gap between two writes.
	// Default: 250ms
	MinSpacing time.Duration `yaml:"min_spacing"`

	// RefreshInterval is how often the bridge re-reads settings, battery
	// and stats. Zero disables periodic refresh.
	// Default: 300s
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// PingFailureThreshold is the number of missed PONGs that forces a
	// disconnect.
	// Default: 3
	PingFailureThreshold int `yaml:"ping_failure_threshold"`

	// ReceiptRetryLimit is the number of receipt timeouts after which a
	// message is dropped.
	// Default: 2
	ReceiptRetryLimit int `yaml:"receipt_retry_limit"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetentionDays prunes door events older than this. Zero keeps
	// everything.
	RetentionDays int `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP status server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
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

// ScheduleConfig is an optional desired schedule pushed to the door at
// startup. Days are named ("monday" or "mon") and each holds "HH:MM"
// spans.
type ScheduleConfig struct {
	ApplyOnStart bool                       `yaml:"apply_on_start"`
	Inside       map[string][]schedule.Span `yaml:"inside"`
	Outside      map[string][]schedule.Span `yaml:"outside"`
}

// Zones returns the configured zones parsed into windows per weekday.
// Zones with no days configured are omitted.
func (s ScheduleConfig) Zones() (map[schedule.Zone]map[time.Weekday][]schedule.Window, error) {
	out := make(map[schedule.Zone]map[time.Weekday][]schedule.Window)
	for zone, days := range map[schedule.Zone]map[string][]schedule.Span{
		schedule.ZoneInside:  s.Inside,
		schedule.ZoneOutside: s.Outside,
	} {
		if len(days) == 0 {
			continue
		}
		week, err := schedule.ParseWeek(days)
		if err != nil {
			return nil, fmt.Errorf("schedule.%s: %w", zone, err)
		}
		out[zone] = week
	}
	return out, nil
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PETDOOR_SECTION_KEY
// For example: PETDOOR_DOOR_HOST, PETDOOR_API_PORT
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

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Door: DoorConfig{
			ID:                   "petdoor",
			Port:                 3000,
			ConnectTimeout:       5 * time.Second,
			ReconnectDelay:       30 * time.Second,
			KeepAlive:            30 * time.Second,
			PingTimeout:          5 * time.Second,
			ReceiptTimeout:       5 * time.Second,
			MinSpacing:           250 * time.Millisecond,
			RefreshInterval:      300 * time.Second,
			PingFailureThreshold: 3,
			ReceiptRetryLimit:    2,
		},
		Database: DatabaseConfig{
			Enabled:       true,
			Path:          "./data/petdoor.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "petdoor-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: PETDOOR_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Door
	if v := os.Getenv("PETDOOR_DOOR_ID"); v != "" {
		cfg.Door.ID = v
	}
	if v := os.Getenv("PETDOOR_DOOR_HOST"); v != "" {
		cfg.Door.Host = v
	}
	if v := os.Getenv("PETDOOR_DOOR_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PETDOOR_DOOR_PORT: %w", err)
		}
		cfg.Door.Port = port
	}

	// Database
	if v := os.Getenv("PETDOOR_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("PETDOOR_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("PETDOOR_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("PETDOOR_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("PETDOOR_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("PETDOOR_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PETDOOR_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("PETDOOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("PETDOOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Door validation
	if c.Door.ID == "" {
		errs = append(errs, "door.id is required")
	} else if strings.ContainsAny(c.Door.ID, "/+#") {
		errs = append(errs, "door.id must not contain MQTT wildcards or '/'")
	}
	if c.Door.Host == "" {
		errs = append(errs, "door.host is required (set PETDOOR_DOOR_HOST environment variable)")
	}
	if c.Door.Port < 1 || c.Door.Port > 65535 {
		errs = append(errs, "door.port must be between 1 and 65535")
	}
	for name, d := range map[string]time.Duration{
		"connect_timeout":  c.Door.ConnectTimeout,
		"reconnect_delay":  c.Door.ReconnectDelay,
		"keep_alive":       c.Door.KeepAlive,
		"ping_timeout":     c.Door.PingTimeout,
		"receipt_timeout":  c.Door.ReceiptTimeout,
		"min_spacing":      c.Door.MinSpacing,
		"refresh_interval": c.Door.RefreshInterval,
	} {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("door.%s must not be negative", name))
		}
	}
	if c.Door.PingFailureThreshold < 1 {
		errs = append(errs, "door.ping_failure_threshold must be at least 1")
	}
	if c.Door.ReceiptRetryLimit < 1 {
		errs = append(errs, "door.receipt_retry_limit must be at least 1")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	// Schedule validation
	if _, err := c.Schedule.Zones(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		// Map iteration above is unordered.
		slices.Sort(errs)
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// String renders the configuration with secrets redacted.
func (c Config) String() string {
	if c.MQTT.Auth.Password != "" {
		c.MQTT.Auth.Password = "[redacted]"
	}
	if c.InfluxDB.Token != "" {
		c.InfluxDB.Token = "[redacted]"
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
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
