// Package history keeps a local record of what happened at each door:
// motion status changes, link connects and drops, battery snapshots and
// commands issued through the bridge. It also stores the last schedule
// read back from the door so it can be shown while the door is offline.
//
// The history lives in SQLite next to the bridge and survives restarts;
// time-series telemetry goes to InfluxDB separately. Old events are pruned
// by Repository.Prune according to database.retention_days.
package history
