// petdoor-bridge connects a Power Pet Door to MQTT.
//
// It keeps a TCP session to the door, publishes the door's state as
// retained MQTT messages, accepts commands on MQTT, records door events in
// SQLite, optionally writes telemetry to InfluxDB and serves a small HTTP
// status API with Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nerrad567/petdoor-bridge/internal/api"
	"github.com/nerrad567/petdoor-bridge/internal/bridge"
	"github.com/nerrad567/petdoor-bridge/internal/history"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/config"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/database"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/petdoor-bridge/internal/metrics"
	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupCheckTimeout bounds the infrastructure health checks at startup.
const startupCheckTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting petdoor bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Debug("effective configuration", "config", cfg.String())

	startupSchedule, err := cfg.Schedule.Zones()
	if err != nil {
		return fmt.Errorf("parsing schedule: %w", err)
	}

	checks := make(map[string]api.HealthChecker)

	// History (optional)
	var events *history.SQLiteRepository
	db, err := database.Open(cfg.Database)
	switch {
	case errors.Is(err, database.ErrDisabled):
		log.Info("database disabled, door history will not be recorded")
	case err != nil:
		return fmt.Errorf("opening database: %w", err)
	default:
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		events = history.NewSQLiteRepository(db.DB)
		checks["database"] = db
		log.Info("database ready", "path", cfg.Database.Path)
	}

	// MQTT
	var broker bridge.Broker = offlineBroker{}
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

		broker = mqttClient
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Warn("MQTT disabled, door state will not be published")
	}

	// InfluxDB (optional)
	var telemetry bridge.Telemetry
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = influxClient
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	// Door client
	recorder := metrics.NewRecorder(cfg.Door.ID)
	door, err := petdoor.New(doorConfig(cfg.Door))
	if err != nil {
		return fmt.Errorf("creating door client: %w", err)
	}
	door.SetLogger(log.Component("petdoor"))
	door.SetObserver(recorder)

	// Bridge
	opts := bridge.Options{
		DoorID:          cfg.Door.ID,
		Door:            door,
		Broker:          broker,
		QoS:             byte(cfg.MQTT.QoS),
		Version:         version,
		RefreshInterval: cfg.Door.RefreshInterval,
		Retention:       time.Duration(cfg.Database.RetentionDays) * 24 * time.Hour,
		Telemetry:       telemetry,
		Metrics:         recorder,
		Logger:          log.Component("bridge"),
	}
	if events != nil {
		opts.Events = events
	}
	if cfg.Schedule.ApplyOnStart {
		opts.StartupSchedule = startupSchedule
	}

	br, err := bridge.New(opts)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := br.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		br.Stop()
	}()

	door.Start()
	defer func() {
		log.Info("stopping door client")
		door.Stop()
	}()
	log.Info("door client started", "door_id", cfg.Door.ID, "address", fmt.Sprintf("%s:%d", cfg.Door.Host, cfg.Door.Port))

	// HTTP status API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Version: version,
			DoorID:  cfg.Door.ID,
			Status:  br,
			Metrics: recorder.Handler(),
			Checks:  checks,
		}
		if events != nil {
			deps.History = events
		}
		server, apiErr := api.New(deps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse: API, door client, bridge, InfluxDB,
	// MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PETDOOR_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PETDOOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// doorConfig converts the door section of the configuration.
func doorConfig(d config.DoorConfig) petdoor.Config {
	return petdoor.Config{
		Host:                 d.Host,
		Port:                 d.Port,
		ConnectTimeout:       d.ConnectTimeout,
		ReconnectDelay:       d.ReconnectDelay,
		KeepAlive:            d.KeepAlive,
		PingTimeout:          d.PingTimeout,
		ReceiptTimeout:       d.ReceiptTimeout,
		MinSpacing:           d.MinSpacing,
		PingFailureThreshold: d.PingFailureThreshold,
		ReceiptRetryLimit:    d.ReceiptRetryLimit,
	}
}

// healthCheck verifies every enabled infrastructure connection.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	ctx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	for _, name := range []string{"database", "mqtt", "influxdb"} {
		c, ok := checks[name]
		if !ok {
			continue
		}
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// offlineBroker stands in for MQTT when it is disabled. Publishes are
// dropped and no commands arrive.
type offlineBroker struct{}

func (offlineBroker) Publish(string, []byte, byte, bool) error         { return nil }
func (offlineBroker) Subscribe(string, byte, mqtt.MessageHandler) error { return nil }
func (offlineBroker) Unsubscribe(string) error                          { return nil }
func (offlineBroker) IsConnected() bool                                 { return false }
