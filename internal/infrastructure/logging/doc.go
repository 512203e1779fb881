// Package logging builds the bridge's structured logger on log/slog.
//
// Every entry carries service and version. Components get a child logger
// via Component, which the door client, bridge, API and simulator accept
// through their own small Logger interfaces. Format and level come from
// the logging section of the config:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Every door frame sent and received is logged at debug level, so debug
// is noisy on a busy door.
//
// Never log secrets. config.Config.String redacts the MQTT password and
// the InfluxDB token and is the only supported way to log the config.
package logging
