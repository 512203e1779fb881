// Package api implements the bridge's HTTP status server.
//
// This package provides:
//   - GET /healthz: liveness plus the result of each registered health check
//   - GET /metrics: Prometheus exposition from the metrics recorder
//   - GET /status: the bridge's current view of the door
//   - GET /history: recent door events, newest first
//   - GET /schedule: the last schedule read from the door
//
// The server is read-only. Door commands go through MQTT.
//
// # Graceful Degradation
//
// Every dependency except the logger is optional. Without history,
// /history and /schedule answer 503; without a metrics handler /metrics is
// not routed.
package api
