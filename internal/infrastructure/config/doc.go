// Package config loads the bridge's YAML configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// PETDOOR_<SECTION>_<KEY> environment variables. Validate reports every
// problem at once, so a bad file is fixed in one pass.
//
// Put the MQTT password and InfluxDB token in the environment (or a .env
// file) rather than the YAML. Config.String redacts both.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	zones, err := cfg.Schedule.Zones()
package config
