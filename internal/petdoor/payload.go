package petdoor

import (
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// Category names the kind of data a reply carries.
type Category string

// Reply categories.
const (
	CategoryDoorStatus          Category = "door_status"
	CategorySettings            Category = "settings"
	CategorySensors             Category = "sensors"
	CategoryPower               Category = "power"
	CategoryTimers              Category = "timers"
	CategoryHardware            Category = "hardware"
	CategoryBattery             Category = "battery"
	CategoryStats               Category = "stats"
	CategoryNotifications       Category = "notifications"
	CategoryTimezone            Category = "timezone"
	CategoryHoldTime            Category = "hold_time"
	CategoryTriggerVoltage      Category = "trigger_voltage"
	CategorySleepTriggerVoltage Category = "sleep_trigger_voltage"
	CategoryScheduleList        Category = "schedule_list"
	CategorySchedule            Category = "schedule"
	CategoryPong                Category = "pong"
	CategoryLockout             Category = "lockout"
	CategoryAutoRetract         Category = "autoretract"
	CategoryAck                 Category = "ack"
)

// Payload is the typed content of a successful reply. The set of
// implementations is closed; switch on the concrete type.
type Payload interface {
	Category() Category
	isPayload()
}

// Sensor names one of the door's boolean sensor settings.
type Sensor string

// Sensors reported through sensor listeners. SensorAll subscribes to all.
const (
	SensorPower   Sensor = "power"
	SensorInside  Sensor = "inside"
	SensorOutside Sensor = "outside"
	SensorAuto    Sensor = "auto"
	SensorAll     Sensor = "*"
)

// AllSensors lists the concrete sensors in a stable order.
var AllSensors = []Sensor{SensorPower, SensorInside, SensorOutside, SensorAuto}

// DoorStatus is the door's motion state, e.g. DOOR_CLOSED.
type DoorStatus struct {
	State string
}

// Open reports whether the door is anywhere but closed.
func (d DoorStatus) Open() bool { return protocol.IsOpenState(d.State) }

// Settings is the GET_SETTINGS snapshot.
type Settings struct {
	// Sensors holds the sensor flags the snapshot carried.
	Sensors map[Sensor]bool

	CommandLockout    bool
	HasCommandLockout bool
	AutoRetract       bool
	HasAutoRetract    bool

	// HoldTime is the hold-open time in device units (0.01 s).
	HoldTime int

	// SensorTriggerVoltage and SleepSensorTriggerVoltage are in millivolts.
	SensorTriggerVoltage      int
	SleepSensorTriggerVoltage int

	Timezone string

	// Raw is the undecoded settings object.
	Raw map[string]any
}

// Sensors is the state of the inside and outside sensors. Only sensors the
// reply carried are present.
type Sensors struct {
	Values map[Sensor]bool
}

// Get returns a sensor's state and whether the reply carried it.
func (s Sensors) Get(sensor Sensor) (on bool, ok bool) {
	on, ok = s.Values[sensor]
	return on, ok
}

// Power is the door's power state.
type Power struct {
	On bool
}

// TimersEnabled reports whether schedules are active ("auto" mode).
type TimersEnabled struct {
	Enabled bool
}

// CommandLockout reports whether remote commands are locked out.
type CommandLockout struct {
	Enabled bool
}

// AutoRetract reports whether the door retracts on obstruction.
type AutoRetract struct {
	Enabled bool
}

// HardwareInfo is the door's firmware identification.
type HardwareInfo struct {
	Version  string
	Revision string
	Major    int
	Minor    int
	Patch    int
}

// Battery is a battery snapshot.
type Battery struct {
	Percent   int
	Present   bool
	ACPresent bool
}

// Stats holds the door's lifetime counters.
type Stats struct {
	OpenCycles   int
	AutoRetracts int
}

// Notifications holds the door's notification switches.
type Notifications struct {
	SensorOnIndoor   bool
	SensorOffIndoor  bool
	SensorOnOutdoor  bool
	SensorOffOutdoor bool
	LowBattery       bool
}

// Map returns the notifications object in the door's JSON shape.
func (n Notifications) Map() map[string]any {
	return map[string]any{
		protocol.FieldSensorOnIndoorNotify:   n.SensorOnIndoor,
		protocol.FieldSensorOffIndoorNotify:  n.SensorOffIndoor,
		protocol.FieldSensorOnOutdoorNotify:  n.SensorOnOutdoor,
		protocol.FieldSensorOffOutdoorNotify: n.SensorOffOutdoor,
		protocol.FieldLowBatteryNotify:       n.LowBattery,
	}
}

// Timezone is the door's POSIX TZ string.
type Timezone struct {
	TZ string
}

// HoldTime is the hold-open time in device units.
type HoldTime struct {
	Units int
}

// Duration converts device units to a duration.
func (h HoldTime) Duration() time.Duration {
	return time.Duration(h.Units) * 10 * time.Millisecond
}

// TriggerVoltage is the sensor trigger voltage in millivolts.
type TriggerVoltage struct {
	Millivolts int
}

// Volts converts to volts.
func (v TriggerVoltage) Volts() float64 {
	return float64(v.Millivolts) * protocol.VoltageUnitVolts
}

// SleepTriggerVoltage is the sleep-mode sensor trigger voltage in millivolts.
type SleepTriggerVoltage struct {
	Millivolts int
}

// Volts converts to volts.
func (v SleepTriggerVoltage) Volts() float64 {
	return float64(v.Millivolts) * protocol.VoltageUnitVolts
}

// ScheduleList is the set of occupied schedule slots.
type ScheduleList struct {
	Indices []int
}

// ScheduleEntry is one schedule slot.
type ScheduleEntry struct {
	Entry schedule.Entry
}

// Pong is a keepalive reply.
type Pong struct {
	Nonce string
}

// Ack is a successful reply that carries no typed data.
type Ack struct {
	Command string
	Fields  map[string]any
}

func (DoorStatus) Category() Category          { return CategoryDoorStatus }
func (Settings) Category() Category            { return CategorySettings }
func (Sensors) Category() Category             { return CategorySensors }
func (Power) Category() Category               { return CategoryPower }
func (TimersEnabled) Category() Category       { return CategoryTimers }
func (CommandLockout) Category() Category      { return CategoryLockout }
func (AutoRetract) Category() Category         { return CategoryAutoRetract }
func (HardwareInfo) Category() Category        { return CategoryHardware }
func (Battery) Category() Category             { return CategoryBattery }
func (Stats) Category() Category               { return CategoryStats }
func (Notifications) Category() Category       { return CategoryNotifications }
func (Timezone) Category() Category            { return CategoryTimezone }
func (HoldTime) Category() Category            { return CategoryHoldTime }
func (TriggerVoltage) Category() Category      { return CategoryTriggerVoltage }
func (SleepTriggerVoltage) Category() Category { return CategorySleepTriggerVoltage }
func (ScheduleList) Category() Category        { return CategoryScheduleList }
func (ScheduleEntry) Category() Category       { return CategorySchedule }
func (Pong) Category() Category                { return CategoryPong }
func (Ack) Category() Category                 { return CategoryAck }

func (DoorStatus) isPayload()          {}
func (Settings) isPayload()            {}
func (Sensors) isPayload()             {}
func (Power) isPayload()               {}
func (TimersEnabled) isPayload()       {}
func (CommandLockout) isPayload()      {}
func (AutoRetract) isPayload()         {}
func (HardwareInfo) isPayload()        {}
func (Battery) isPayload()             {}
func (Stats) isPayload()               {}
func (Notifications) isPayload()       {}
func (Timezone) isPayload()            {}
func (HoldTime) isPayload()            {}
func (TriggerVoltage) isPayload()      {}
func (SleepTriggerVoltage) isPayload() {}
func (ScheduleList) isPayload()        {}
func (ScheduleEntry) isPayload()       {}
func (Pong) isPayload()                {}
func (Ack) isPayload()                 {}
