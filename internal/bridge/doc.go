// Package bridge connects a Power Pet Door to MQTT.
//
// It translates MQTT commands into door requests and publishes the door's
// replies and events as retained state. Telemetry, history and metrics are
// optional sinks fed from the same events.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐
//	│  Home automation│   MQTT   │     Bridge      │   TCP
//	│   / dashboards  │◄────────►│   (this pkg)    │◄────────► Pet door
//	└─────────────────┘          └─────────────────┘
//
// # Topics
//
//	petdoor/command/{door_id}/{action}    commands in
//	petdoor/ack/{door_id}                 command acknowledgements
//	petdoor/state/{door_id}/{category}    retained state per reply category
//	petdoor/health/{door_id}              retained health
//
// # Commands
//
// Toggle actions (power, inside, outside, timers, lockout, autoretract)
// take a boolean value. hold_time takes seconds, timezone a POSIX TZ
// string. schedule replaces one zone's week:
//
//	{"id": "c1", "zone": "outside", "days": {"mon": [{"from": "07:00", "to": "19:00"}]}}
//
// Commands run one at a time in arrival order. When the queue is full the
// command is acknowledged with BRIDGE_BUSY.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Door callbacks run on
// the door client's reader goroutine, so anything that talks to the door
// is handed to the bridge's own goroutines.
package bridge
