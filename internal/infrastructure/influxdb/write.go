package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the bridge.
const (
	MeasurementLatency    = "door_latency"
	MeasurementBattery    = "door_battery"
	MeasurementStats      = "door_stats"
	MeasurementStatus     = "door_status"
	MeasurementConnection = "door_connection"
)

// WriteLatency records one PING round trip.
//
// Example:
//
//	client.WriteLatency("garden", 42*time.Millisecond)
func (c *Client) WriteLatency(doorID string, rtt time.Duration) {
	c.write(latencyPoint(doorID, rtt, time.Now()))
}

// WriteBattery records a battery snapshot.
func (c *Client) WriteBattery(doorID string, percent int, present, acPresent bool) {
	c.write(batteryPoint(doorID, percent, present, acPresent, time.Now()))
}

// WriteOpenStats records the door's lifetime counters. They only grow, so
// a query for the difference between two points gives cycles per period.
func (c *Client) WriteOpenStats(doorID string, openCycles, autoRetracts int) {
	c.write(statsPoint(doorID, openCycles, autoRetracts, time.Now()))
}

// WriteDoorStatus records a motion state change, e.g. DOOR_RISING.
func (c *Client) WriteDoorStatus(doorID, status string, open bool) {
	c.write(statusPoint(doorID, status, open, time.Now()))
}

// WriteConnection records a connection state change of the door link.
func (c *Client) WriteConnection(doorID, state string) {
	c.write(connectionPoint(doorID, state, time.Now()))
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, timestamp))
}

// write queues a point unless the client is closed. Writes are batched and
// never block the caller.
func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func doorTags(doorID string) map[string]string {
	return map[string]string{"door_id": doorID}
}

func latencyPoint(doorID string, rtt time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementLatency, doorTags(doorID), map[string]interface{}{
		"rtt_ms": float64(rtt) / float64(time.Millisecond),
	}, ts)
}

func batteryPoint(doorID string, percent int, present, acPresent bool, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementBattery, doorTags(doorID), map[string]interface{}{
		"percent":    percent,
		"present":    present,
		"ac_present": acPresent,
	}, ts)
}

func statsPoint(doorID string, openCycles, autoRetracts int, ts time.Time) *write.Point {
	return write.NewPoint(MeasurementStats, doorTags(doorID), map[string]interface{}{
		"open_cycles":   openCycles,
		"auto_retracts": autoRetracts,
	}, ts)
}

func statusPoint(doorID, status string, open bool, ts time.Time) *write.Point {
	tags := doorTags(doorID)
	tags["status"] = status
	return write.NewPoint(MeasurementStatus, tags, map[string]interface{}{
		"open": open,
	}, ts)
}

func connectionPoint(doorID, state string, ts time.Time) *write.Point {
	tags := doorTags(doorID)
	tags["state"] = state
	connected := 0
	if state == "connected" {
		connected = 1
	}
	return write.NewPoint(MeasurementConnection, tags, map[string]interface{}{
		"connected": connected,
	}, ts)
}
