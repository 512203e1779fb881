package protocol

import "strings"

// Kind is the top-level key that carries the command in an outbound message.
type Kind string

// Message kinds.
const (
	KindCommand Kind = "cmd"
	KindConfig  Kind = "config"
	KindPing    Kind = "PING"
)

// Envelope keys.
const (
	FieldMsgID     = "msgId" // outbound request id
	FieldReplyID   = "msgID" // inbound correlation id (capital D)
	FieldDirection = "dir"
	FieldSuccess   = "success"
	FieldCommand   = "CMD"
	FieldPong      = "PONG"
	FieldError     = "error"

	DirectionToDoor   = "p2d"
	DirectionFromDoor = "d2p"
)

// Door motion commands (sent with KindCommand).
const (
	CmdOpen        = "OPEN"
	CmdOpenAndHold = "OPEN_AND_HOLD"
	CmdClose       = "CLOSE"
)

// Status queries (sent with KindConfig).
const (
	CmdGetDoorStatus    = "GET_DOOR_STATUS"
	CmdGetSettings      = "GET_SETTINGS"
	CmdGetSensors       = "GET_SENSORS"
	CmdGetPower         = "GET_POWER"
	CmdGetTimersEnabled = "GET_TIMERS_ENABLED"
	CmdGetHardwareInfo  = "GET_HW_INFO"
	CmdGetDoorBattery   = "GET_DOOR_BATTERY"
	CmdGetOpenStats     = "GET_DOOR_OPEN_STATS"
	CmdGetNotifications = "GET_NOTIFICATIONS"
	CmdGetCmdLockout    = "GET_CMD_LOCKOUT"
	CmdGetAutoRetract   = "GET_AUTORETRACT"
)

// Unsolicited or alternate reply names.
const (
	CmdDoorStatus  = "DOOR_STATUS"
	CmdDoorBattery = "DOOR_BATTERY"
	CmdPong        = "PONG"
)

// Toggles (sent with KindConfig).
const (
	CmdEnableInside       = "ENABLE_INSIDE"
	CmdDisableInside      = "DISABLE_INSIDE"
	CmdEnableOutside      = "ENABLE_OUTSIDE"
	CmdDisableOutside     = "DISABLE_OUTSIDE"
	CmdEnableTimers       = "ENABLE_TIMERS"
	CmdDisableTimers      = "DISABLE_TIMERS"
	CmdPowerOn            = "POWER_ON"
	CmdPowerOff           = "POWER_OFF"
	CmdEnableCmdLockout   = "ENABLE_CMD_LOCKOUT"
	CmdDisableCmdLockout  = "DISABLE_CMD_LOCKOUT"
	CmdEnableAutoRetract  = "ENABLE_AUTORETRACT"
	CmdDisableAutoRetract = "DISABLE_AUTORETRACT"
)

// Settings (sent with KindConfig).
const (
	CmdGetHoldTime                  = "GET_HOLD_TIME"
	CmdSetHoldTime                  = "SET_HOLD_TIME"
	CmdGetTimezone                  = "GET_TIMEZONE"
	CmdSetTimezone                  = "SET_TIMEZONE"
	CmdGetSensorTriggerVoltage      = "GET_SENSOR_TRIGGER_VOLTAGE"
	CmdSetSensorTriggerVoltage      = "SET_SENSOR_TRIGGER_VOLTAGE"
	CmdGetSleepSensorTriggerVoltage = "GET_SLEEP_SENSOR_TRIGGER_VOLTAGE"
	CmdSetSleepSensorTriggerVoltage = "SET_SLEEP_SENSOR_TRIGGER_VOLTAGE"
	CmdSetNotifications             = "SET_NOTIFICATIONS"
)

// Schedule slots (sent with KindConfig).
const (
	CmdGetScheduleList = "GET_SCHEDULE_LIST"
	CmdGetSchedule     = "GET_SCHEDULE"
	CmdSetSchedule     = "SET_SCHEDULE"
	CmdDeleteSchedule  = "DELETE_SCHEDULE"
)

// Payload fields.
const (
	FieldDoorStatus    = "door_status"
	FieldSettings      = "settings"
	FieldPower         = "power_state"
	FieldInside        = "inside"
	FieldOutside       = "outside"
	FieldTimersEnabled = "timersEnabled"
	FieldCmdLockout    = "cmd_lockout"
	FieldAutoRetract   = "autoretract"

	FieldHoldOpenTime              = "holdOpenTime"
	FieldHoldTime                  = "holdTime"
	FieldSensorTriggerVoltage      = "sensorTriggerVoltage"
	FieldSleepSensorTriggerVoltage = "sleepSensorTriggerVoltage"
	FieldVoltage                   = "voltage"
	FieldTimezone                  = "tz"

	FieldFirmwareInfo  = "fwInfo"
	FieldFirmwareVer   = "ver"
	FieldFirmwareRev   = "rev"
	FieldFirmwareMajor = "fw_maj"
	FieldFirmwareMinor = "fw_min"
	FieldFirmwarePatch = "fw_pat"

	FieldBatteryPercent = "batteryPercent"
	FieldBatteryPresent = "batteryPresent"
	FieldACPresent      = "acPresent"

	FieldTotalOpenCycles   = "totalOpenCycles"
	FieldTotalAutoRetracts = "totalAutoRetracts"

	FieldNotifications          = "notifications"
	FieldSensorOnIndoorNotify   = "sensorOnIndoorNotificationsEnabled"
	FieldSensorOffIndoorNotify  = "sensorOffIndoorNotificationsEnabled"
	FieldSensorOnOutdoorNotify  = "sensorOnOutdoorNotificationsEnabled"
	FieldSensorOffOutdoorNotify = "sensorOffOutdoorNotificationsEnabled"
	FieldLowBatteryNotify       = "lowBatteryNotificationsEnabled"

	FieldSchedules    = "schedules"
	FieldSchedule     = "schedule"
	FieldIndex        = "index"
	FieldDaysOfWeek   = "daysOfWeek"
	FieldEnabled      = "enabled"
	FieldInsideStart  = "in_start_time"
	FieldInsideEnd    = "in_end_time"
	FieldOutsideStart = "out_start_time"
	FieldOutsideEnd   = "out_end_time"
	FieldHour         = "hour"
	FieldMinute       = "min"
)

// Door states reported in door_status.
const (
	DoorIdle           = "DOOR_IDLE"
	DoorClosed         = "DOOR_CLOSED"
	DoorHolding        = "DOOR_HOLDING"
	DoorKeepUp         = "DOOR_KEEPUP"
	DoorSlowing        = "DOOR_SLOWING"
	DoorClosingTopOpen = "DOOR_CLOSING_TOP_OPEN"
	DoorClosingMidOpen = "DOOR_CLOSING_MID_OPEN"
	DoorRising         = "DOOR_RISING"
)

// Unit multipliers for numeric settings.
const (
	// HoldTimeUnitSeconds is the length of one holdTime unit.
	HoldTimeUnitSeconds = 0.01

	// VoltageUnitVolts is the size of one trigger voltage unit.
	VoltageUnitVolts = 0.001
)

// IsOpenState reports whether the door is anywhere other than fully closed.
func IsOpenState(status string) bool {
	switch status {
	case DoorClosed, DoorIdle, "":
		return false
	default:
		return true
	}
}

// Priority orders outbound messages. Lower values are sent first.
type Priority int

// Priority tiers.
const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// String returns the tier name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// PriorityFor returns the default tier for a message.
//
// Keepalive pings are critical, door motion is high, read-only GET_*
// queries are low and every other write sits in between.
func PriorityFor(kind Kind, command string) Priority {
	if kind == KindPing {
		return PriorityCritical
	}
	switch command {
	case CmdOpen, CmdOpenAndHold, CmdClose:
		return PriorityHigh
	}
	if strings.HasPrefix(command, "GET_") {
		return PriorityLow
	}
	return PriorityMedium
}
