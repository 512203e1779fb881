package petdoor

import (
	"fmt"
	"strings"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// replyAliases maps a request to the CMD its reply may carry instead of
// the request's own name.
var replyAliases = map[string]string{
	protocol.CmdGetDoorStatus:  protocol.CmdDoorStatus,
	protocol.CmdGetDoorBattery: protocol.CmdDoorBattery,
}

// isReplyTo reports whether a reply CMD answers the given request command.
func isReplyTo(request, replyCmd string) bool {
	return request == replyCmd || replyAliases[request] == replyCmd
}

// decodePayload turns a successful frame into its typed payload.
//
// Frames for unknown commands decode to Ack, as do write replies that do
// not echo the new value. A query reply whose data field is missing or
// unusable returns ErrUnexpectedPayload.
func decodePayload(in *protocol.Inbound) (Payload, error) {
	p, err := decodeTyped(in)
	if err != nil && isWrite(in.Command) {
		return Ack{Command: in.Command, Fields: in.Fields}, nil
	}
	return p, err
}

// isWrite reports whether a command changes door state.
func isWrite(cmd string) bool {
	for _, prefix := range []string{"SET_", "ENABLE_", "DISABLE_", "POWER_", "DELETE_"} {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}

func decodeTyped(in *protocol.Inbound) (Payload, error) {
	f := in.Fields

	switch in.Command {
	case protocol.CmdDoorStatus, protocol.CmdGetDoorStatus:
		s, ok := protocol.String(f[protocol.FieldDoorStatus])
		if !ok {
			return nil, missing(in, protocol.FieldDoorStatus)
		}
		return DoorStatus{State: s}, nil

	case protocol.CmdGetSettings:
		obj, ok := in.Object(protocol.FieldSettings)
		if !ok {
			return nil, missing(in, protocol.FieldSettings)
		}
		return decodeSettings(obj), nil

	case protocol.CmdGetSensors,
		protocol.CmdEnableInside, protocol.CmdDisableInside,
		protocol.CmdEnableOutside, protocol.CmdDisableOutside:
		values := make(map[Sensor]bool, 2)
		if on, ok := protocol.Bool(f[protocol.FieldInside]); ok {
			values[SensorInside] = on
		}
		if on, ok := protocol.Bool(f[protocol.FieldOutside]); ok {
			values[SensorOutside] = on
		}
		return Sensors{Values: values}, nil

	case protocol.CmdGetPower, protocol.CmdPowerOn, protocol.CmdPowerOff:
		on, ok := protocol.Bool(f[protocol.FieldPower])
		if !ok {
			return nil, missing(in, protocol.FieldPower)
		}
		return Power{On: on}, nil

	case protocol.CmdGetTimersEnabled, protocol.CmdEnableTimers, protocol.CmdDisableTimers:
		on, ok := protocol.Bool(f[protocol.FieldTimersEnabled])
		if !ok {
			return nil, missing(in, protocol.FieldTimersEnabled)
		}
		return TimersEnabled{Enabled: on}, nil

	case protocol.CmdGetCmdLockout, protocol.CmdEnableCmdLockout, protocol.CmdDisableCmdLockout:
		on, ok := protocol.Bool(f[protocol.FieldCmdLockout])
		if !ok {
			return nil, missing(in, protocol.FieldCmdLockout)
		}
		return CommandLockout{Enabled: on}, nil

	case protocol.CmdGetAutoRetract, protocol.CmdEnableAutoRetract, protocol.CmdDisableAutoRetract:
		on, ok := protocol.Bool(f[protocol.FieldAutoRetract])
		if !ok {
			return nil, missing(in, protocol.FieldAutoRetract)
		}
		return AutoRetract{Enabled: on}, nil

	case protocol.CmdGetHardwareInfo:
		obj, ok := in.Object(protocol.FieldFirmwareInfo)
		if !ok {
			return nil, missing(in, protocol.FieldFirmwareInfo)
		}
		var hw HardwareInfo
		hw.Version, _ = protocol.String(obj[protocol.FieldFirmwareVer])
		hw.Revision, _ = protocol.String(obj[protocol.FieldFirmwareRev])
		hw.Major, _ = protocol.Int(obj[protocol.FieldFirmwareMajor])
		hw.Minor, _ = protocol.Int(obj[protocol.FieldFirmwareMinor])
		hw.Patch, _ = protocol.Int(obj[protocol.FieldFirmwarePatch])
		return hw, nil

	case protocol.CmdGetDoorBattery, protocol.CmdDoorBattery:
		pct, ok := protocol.Int(f[protocol.FieldBatteryPercent])
		if !ok {
			return nil, missing(in, protocol.FieldBatteryPercent)
		}
		b := Battery{Percent: pct}
		b.Present, _ = protocol.Bool(f[protocol.FieldBatteryPresent])
		b.ACPresent, _ = protocol.Bool(f[protocol.FieldACPresent])
		return b, nil

	case protocol.CmdGetOpenStats:
		var s Stats
		s.OpenCycles, _ = protocol.Int(f[protocol.FieldTotalOpenCycles])
		s.AutoRetracts, _ = protocol.Int(f[protocol.FieldTotalAutoRetracts])
		return s, nil

	case protocol.CmdGetNotifications, protocol.CmdSetNotifications:
		obj, ok := in.Object(protocol.FieldNotifications)
		if !ok {
			return nil, missing(in, protocol.FieldNotifications)
		}
		var n Notifications
		n.SensorOnIndoor, _ = protocol.Bool(obj[protocol.FieldSensorOnIndoorNotify])
		n.SensorOffIndoor, _ = protocol.Bool(obj[protocol.FieldSensorOffIndoorNotify])
		n.SensorOnOutdoor, _ = protocol.Bool(obj[protocol.FieldSensorOnOutdoorNotify])
		n.SensorOffOutdoor, _ = protocol.Bool(obj[protocol.FieldSensorOffOutdoorNotify])
		n.LowBattery, _ = protocol.Bool(obj[protocol.FieldLowBatteryNotify])
		return n, nil

	case protocol.CmdGetTimezone, protocol.CmdSetTimezone:
		tz, ok := protocol.String(f[protocol.FieldTimezone])
		if !ok {
			return nil, missing(in, protocol.FieldTimezone)
		}
		return Timezone{TZ: tz}, nil

	case protocol.CmdGetHoldTime, protocol.CmdSetHoldTime:
		units, ok := protocol.Int(f[protocol.FieldHoldTime])
		if !ok {
			return nil, missing(in, protocol.FieldHoldTime)
		}
		return HoldTime{Units: units}, nil

	case protocol.CmdGetSensorTriggerVoltage, protocol.CmdSetSensorTriggerVoltage:
		mv, ok := protocol.Int(f[protocol.FieldVoltage])
		if !ok {
			return nil, missing(in, protocol.FieldVoltage)
		}
		return TriggerVoltage{Millivolts: mv}, nil

	case protocol.CmdGetSleepSensorTriggerVoltage, protocol.CmdSetSleepSensorTriggerVoltage:
		mv, ok := protocol.Int(f[protocol.FieldVoltage])
		if !ok {
			return nil, missing(in, protocol.FieldVoltage)
		}
		return SleepTriggerVoltage{Millivolts: mv}, nil

	case protocol.CmdGetScheduleList:
		list, ok := f[protocol.FieldSchedules].([]any)
		if !ok {
			return nil, missing(in, protocol.FieldSchedules)
		}
		indices := make([]int, 0, len(list))
		for _, v := range list {
			idx, ok := protocol.Int(v)
			if !ok {
				return nil, fmt.Errorf("%w: %s: non-integer slot %v", ErrUnexpectedPayload, in.Command, v)
			}
			indices = append(indices, idx)
		}
		return ScheduleList{Indices: indices}, nil

	case protocol.CmdGetSchedule, protocol.CmdSetSchedule:
		obj, ok := in.Object(protocol.FieldSchedule)
		if !ok {
			// Some firmware puts the row at the top level.
			obj = f
		}
		e, err := schedule.Decode(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedPayload, in.Command, err)
		}
		return ScheduleEntry{Entry: e}, nil

	case protocol.CmdPong:
		nonce, _ := protocol.String(f[protocol.FieldPong])
		return Pong{Nonce: nonce}, nil

	default:
		return Ack{Command: in.Command, Fields: f}, nil
	}
}

// decodeSettings extracts the known fields of a settings object. Fields
// with unrecognised values are left out.
func decodeSettings(obj map[string]any) Settings {
	s := Settings{Sensors: make(map[Sensor]bool, len(AllSensors)), Raw: obj}

	// Firmware revisions disagree on the power and auto keys.
	sensorKeys := map[Sensor][]string{
		SensorPower:   {protocol.FieldPower, "power"},
		SensorInside:  {protocol.FieldInside},
		SensorOutside: {protocol.FieldOutside},
		SensorAuto:    {protocol.FieldTimersEnabled, "auto"},
	}
	for sensor, keys := range sensorKeys {
		for _, key := range keys {
			if on, ok := protocol.Bool(obj[key]); ok {
				s.Sensors[sensor] = on
				break
			}
		}
	}

	s.CommandLockout, s.HasCommandLockout = protocol.Bool(obj[protocol.FieldCmdLockout])
	s.AutoRetract, s.HasAutoRetract = protocol.Bool(obj[protocol.FieldAutoRetract])
	s.HoldTime, _ = protocol.Int(obj[protocol.FieldHoldOpenTime])
	s.SensorTriggerVoltage, _ = protocol.Int(obj[protocol.FieldSensorTriggerVoltage])
	s.SleepSensorTriggerVoltage, _ = protocol.Int(obj[protocol.FieldSleepSensorTriggerVoltage])
	s.Timezone, _ = protocol.String(obj[protocol.FieldTimezone])
	return s
}

func missing(in *protocol.Inbound, field string) error {
	return fmt.Errorf("%w: %s reply without %s", ErrUnexpectedPayload, in.Command, field)
}
