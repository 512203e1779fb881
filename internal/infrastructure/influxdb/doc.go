// Package influxdb provides InfluxDB connectivity for the pet door bridge.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, door measurement helpers and health monitoring.
//
// # Purpose
//
// The bridge records door telemetry as time series:
//   - door_latency: PING round-trip times
//   - door_battery: charge level and supply
//   - door_stats: lifetime open cycles and auto-retracts
//   - door_status: motion state transitions
//   - door_connection: link state changes
//
// Every point is tagged with door_id.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteBattery("garden", 87, true, true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via
// SetOnError. Connection and health check errors are returned directly.
package influxdb
