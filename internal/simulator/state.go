package simulator

import (
	"maps"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// Timing controls how long each phase of a door movement takes.
type Timing struct {
	Rise       time.Duration
	Slowing    time.Duration
	ClosingTop time.Duration
	ClosingMid time.Duration
}

// DefaultTiming approximates a real door.
func DefaultTiming() Timing {
	return Timing{
		Rise:       1500 * time.Millisecond,
		Slowing:    300 * time.Millisecond,
		ClosingTop: 400 * time.Millisecond,
		ClosingMid: 400 * time.Millisecond,
	}
}

// FastTiming keeps whole cycles well under a second for tests.
func FastTiming() Timing {
	return Timing{
		Rise:       20 * time.Millisecond,
		Slowing:    10 * time.Millisecond,
		ClosingTop: 10 * time.Millisecond,
		ClosingMid: 10 * time.Millisecond,
	}
}

// State is the simulated door's state.
type State struct {
	DoorStatus string

	Power          bool
	Inside         bool
	Outside        bool
	TimersEnabled  bool
	CommandLockout bool
	AutoRetract    bool

	// HoldTime is in device units of 10ms.
	HoldTime int

	Timezone                  string
	SensorTriggerVoltage      int
	SleepSensorTriggerVoltage int

	BatteryPercent int
	BatteryPresent bool
	ACPresent      bool

	TotalOpenCycles   int
	TotalAutoRetracts int

	// Notifications is keyed by the wire field name.
	Notifications map[string]bool

	// Schedules holds rows in wire shape, keyed by slot index.
	Schedules map[int]map[string]any

	FirmwareVersion string
	FirmwareMajor   int
	FirmwareMinor   int
	FirmwarePatch   int

	PetInDoorway bool
}

// DefaultState is a closed, powered door with both sensors enabled.
func DefaultState() State {
	return State{
		DoorStatus:                protocol.DoorClosed,
		Power:                     true,
		Inside:                    true,
		Outside:                   true,
		TimersEnabled:             false,
		AutoRetract:               true,
		HoldTime:                  200,
		Timezone:                  "UTC0",
		SensorTriggerVoltage:      1800,
		SleepSensorTriggerVoltage: 900,
		BatteryPercent:            100,
		BatteryPresent:            true,
		ACPresent:                 true,
		Notifications: map[string]bool{
			protocol.FieldSensorOnIndoorNotify:   false,
			protocol.FieldSensorOffIndoorNotify:  false,
			protocol.FieldSensorOnOutdoorNotify:  false,
			protocol.FieldSensorOffOutdoorNotify: false,
			protocol.FieldLowBatteryNotify:       true,
		},
		Schedules:       make(map[int]map[string]any),
		FirmwareVersion: "1.2.0",
		FirmwareMajor:   1,
		FirmwareMinor:   2,
		FirmwarePatch:   0,
	}
}

// clone deep-copies the maps so snapshots are independent.
func (s State) clone() State {
	s.Notifications = maps.Clone(s.Notifications)
	rows := make(map[int]map[string]any, len(s.Schedules))
	for idx, row := range s.Schedules {
		rows[idx] = maps.Clone(row)
	}
	s.Schedules = rows
	return s
}

func (s State) holdDuration() time.Duration {
	return time.Duration(s.HoldTime) * 10 * time.Millisecond
}

func (s State) zoneEnabled(zone string) bool {
	switch zone {
	case protocol.FieldInside:
		return s.Inside
	case protocol.FieldOutside:
		return s.Outside
	default:
		return false
	}
}

func isClosing(status string) bool {
	switch status {
	case protocol.DoorSlowing, protocol.DoorClosingTopOpen, protocol.DoorClosingMidOpen:
		return true
	default:
		return false
	}
}
