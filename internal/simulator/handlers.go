package simulator

import (
	"maps"
	"slices"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// request is one decoded client message.
type request struct {
	kind    protocol.Kind
	command string
	msgID   int
	hasID   bool
	fields  map[string]any
}

func parseRequest(fields map[string]any) request {
	r := request{fields: fields}
	for _, kind := range []protocol.Kind{protocol.KindPing, protocol.KindCommand, protocol.KindConfig} {
		if v, ok := protocol.String(fields[string(kind)]); ok {
			r.kind, r.command = kind, v
			break
		}
	}
	r.msgID, r.hasID = protocol.Int(fields[protocol.FieldMsgID])
	return r
}

// flag renders a boolean the way the door firmware does.
func flag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

// reply builds a success frame for cmd answering req.
func (r request) reply(cmd string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+4)
	maps.Copy(out, fields)
	out[protocol.FieldCommand] = cmd
	out[protocol.FieldSuccess] = "true"
	out[protocol.FieldDirection] = protocol.DirectionFromDoor
	if r.hasID {
		out[protocol.FieldReplyID] = r.msgID
	}
	return out
}

func (r request) fail(reason string) map[string]any {
	out := r.reply(r.command, map[string]any{protocol.FieldError: reason})
	out[protocol.FieldSuccess] = "false"
	return out
}

func one(frame map[string]any) []map[string]any {
	return []map[string]any{frame}
}

// handle applies a request to the door state. It returns the frames to
// send back and an optional effect to run after they are sent.
func (s *Server) handle(req request) ([]map[string]any, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.kind == protocol.KindPing {
		if !s.respondToPing {
			return nil, nil
		}
		return one(req.reply(protocol.CmdPong, map[string]any{protocol.FieldPong: req.command})), nil
	}
	if req.command == "" {
		return one(req.fail("missing command")), nil
	}
	if s.silent[req.command] {
		return nil, nil
	}

	st := &s.state
	switch req.command {
	case protocol.CmdOpen:
		return one(req.reply(req.command, nil)), func() { s.open() }
	case protocol.CmdOpenAndHold:
		return one(req.reply(req.command, nil)), func() { s.startMotion(motionHold) }
	case protocol.CmdClose:
		if st.DoorStatus == protocol.DoorClosed {
			return one(req.reply(req.command, nil)), func() { s.broadcast(s.statusFrame()) }
		}
		return one(req.reply(req.command, nil)), func() { s.startMotion(motionClose) }

	case protocol.CmdGetDoorStatus:
		return one(req.reply(protocol.CmdDoorStatus, map[string]any{protocol.FieldDoorStatus: st.DoorStatus})), nil

	case protocol.CmdGetSettings:
		return one(req.reply(req.command, map[string]any{protocol.FieldSettings: s.settingsLocked()})), nil

	case protocol.CmdGetSensors:
		return one(req.reply(req.command, s.sensorsLocked())), nil
	case protocol.CmdEnableInside, protocol.CmdDisableInside:
		st.Inside = req.command == protocol.CmdEnableInside
		return one(req.reply(req.command, s.sensorsLocked())), nil
	case protocol.CmdEnableOutside, protocol.CmdDisableOutside:
		st.Outside = req.command == protocol.CmdEnableOutside
		return one(req.reply(req.command, s.sensorsLocked())), nil

	case protocol.CmdGetPower, protocol.CmdPowerOn, protocol.CmdPowerOff:
		if req.command != protocol.CmdGetPower {
			st.Power = req.command == protocol.CmdPowerOn
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldPower: flag(st.Power)})), nil

	case protocol.CmdGetTimersEnabled, protocol.CmdEnableTimers, protocol.CmdDisableTimers:
		if req.command != protocol.CmdGetTimersEnabled {
			st.TimersEnabled = req.command == protocol.CmdEnableTimers
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldTimersEnabled: flag(st.TimersEnabled)})), nil

	case protocol.CmdGetCmdLockout, protocol.CmdEnableCmdLockout, protocol.CmdDisableCmdLockout:
		if req.command != protocol.CmdGetCmdLockout {
			st.CommandLockout = req.command == protocol.CmdEnableCmdLockout
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldCmdLockout: flag(st.CommandLockout)})), nil

	case protocol.CmdGetAutoRetract, protocol.CmdEnableAutoRetract, protocol.CmdDisableAutoRetract:
		if req.command != protocol.CmdGetAutoRetract {
			st.AutoRetract = req.command == protocol.CmdEnableAutoRetract
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldAutoRetract: flag(st.AutoRetract)})), nil

	case protocol.CmdGetHardwareInfo:
		return one(req.reply(req.command, map[string]any{protocol.FieldFirmwareInfo: map[string]any{
			protocol.FieldFirmwareVer:   st.FirmwareVersion,
			protocol.FieldFirmwareRev:   "sim",
			protocol.FieldFirmwareMajor: st.FirmwareMajor,
			protocol.FieldFirmwareMinor: st.FirmwareMinor,
			protocol.FieldFirmwarePatch: st.FirmwarePatch,
		}})), nil

	case protocol.CmdGetDoorBattery:
		return one(s.batteryLockedFor(req)), nil

	case protocol.CmdGetOpenStats:
		return one(req.reply(req.command, map[string]any{
			protocol.FieldTotalOpenCycles:   st.TotalOpenCycles,
			protocol.FieldTotalAutoRetracts: st.TotalAutoRetracts,
		})), nil

	case protocol.CmdGetNotifications:
		return one(req.reply(req.command, map[string]any{protocol.FieldNotifications: s.notificationsLocked()})), nil
	case protocol.CmdSetNotifications:
		obj, ok := req.fields[protocol.FieldNotifications].(map[string]any)
		if !ok {
			return one(req.fail("notifications object required")), nil
		}
		for key, v := range obj {
			if _, known := st.Notifications[key]; !known {
				continue
			}
			if on, ok := protocol.Bool(v); ok {
				st.Notifications[key] = on
			}
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldNotifications: s.notificationsLocked()})), nil

	case protocol.CmdGetTimezone:
		return one(req.reply(req.command, map[string]any{protocol.FieldTimezone: st.Timezone})), nil
	case protocol.CmdSetTimezone:
		tz, ok := protocol.String(req.fields[protocol.FieldTimezone])
		if !ok || tz == "" {
			return one(req.fail("tz required")), nil
		}
		st.Timezone = tz
		return one(req.reply(req.command, map[string]any{protocol.FieldTimezone: st.Timezone})), nil

	case protocol.CmdGetHoldTime:
		return one(req.reply(req.command, map[string]any{protocol.FieldHoldTime: st.HoldTime})), nil
	case protocol.CmdSetHoldTime:
		units, ok := protocol.Int(req.fields[protocol.FieldHoldTime])
		if !ok || units < 0 {
			return one(req.fail("holdTime must be a non-negative integer")), nil
		}
		st.HoldTime = units
		return one(req.reply(req.command, map[string]any{protocol.FieldHoldTime: st.HoldTime})), nil

	case protocol.CmdGetSensorTriggerVoltage, protocol.CmdSetSensorTriggerVoltage:
		if req.command == protocol.CmdSetSensorTriggerVoltage {
			mv, ok := protocol.Int(req.fields[protocol.FieldVoltage])
			if !ok {
				return one(req.fail("voltage must be an integer")), nil
			}
			st.SensorTriggerVoltage = mv
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldVoltage: st.SensorTriggerVoltage})), nil

	case protocol.CmdGetSleepSensorTriggerVoltage, protocol.CmdSetSleepSensorTriggerVoltage:
		if req.command == protocol.CmdSetSleepSensorTriggerVoltage {
			mv, ok := protocol.Int(req.fields[protocol.FieldVoltage])
			if !ok {
				return one(req.fail("voltage must be an integer")), nil
			}
			st.SleepSensorTriggerVoltage = mv
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldVoltage: st.SleepSensorTriggerVoltage})), nil

	case protocol.CmdGetScheduleList:
		indices := slices.Sorted(maps.Keys(st.Schedules))
		if indices == nil {
			indices = []int{}
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldSchedules: indices})), nil

	case protocol.CmdGetSchedule:
		idx, ok := protocol.Int(req.fields[protocol.FieldIndex])
		if !ok {
			return one(req.fail("index required")), nil
		}
		row, ok := st.Schedules[idx]
		if !ok {
			return one(req.fail("no such schedule")), nil
		}
		return one(req.reply(req.command, map[string]any{protocol.FieldSchedule: maps.Clone(row)})), nil

	case protocol.CmdSetSchedule:
		row, ok := req.fields[protocol.FieldSchedule].(map[string]any)
		if !ok {
			return one(req.fail("schedule object required")), nil
		}
		row = maps.Clone(row)
		if idx, ok := req.fields[protocol.FieldIndex]; ok {
			row[protocol.FieldIndex] = idx
		}
		if err := schedule.Validate(row); err != nil {
			return one(req.fail(err.Error())), nil
		}
		idx, _ := protocol.Int(row[protocol.FieldIndex])
		st.Schedules[idx] = row
		return one(req.reply(req.command, map[string]any{protocol.FieldSchedule: maps.Clone(row)})), nil

	case protocol.CmdDeleteSchedule:
		idx, ok := protocol.Int(req.fields[protocol.FieldIndex])
		if !ok {
			return one(req.fail("index required")), nil
		}
		if _, ok := st.Schedules[idx]; !ok {
			return one(req.fail("no such schedule")), nil
		}
		delete(st.Schedules, idx)
		return one(req.reply(req.command, map[string]any{protocol.FieldIndex: idx})), nil

	default:
		return one(req.fail("unknown command")), nil
	}
}

func (s *Server) settingsLocked() map[string]any {
	st := s.state
	return map[string]any{
		protocol.FieldPower:                     flag(st.Power),
		protocol.FieldInside:                    flag(st.Inside),
		protocol.FieldOutside:                   flag(st.Outside),
		protocol.FieldTimersEnabled:             flag(st.TimersEnabled),
		protocol.FieldCmdLockout:                flag(st.CommandLockout),
		protocol.FieldAutoRetract:               flag(st.AutoRetract),
		protocol.FieldHoldOpenTime:              st.HoldTime,
		protocol.FieldSensorTriggerVoltage:      st.SensorTriggerVoltage,
		protocol.FieldSleepSensorTriggerVoltage: st.SleepSensorTriggerVoltage,
		protocol.FieldTimezone:                  st.Timezone,
	}
}

func (s *Server) sensorsLocked() map[string]any {
	return map[string]any{
		protocol.FieldInside:  flag(s.state.Inside),
		protocol.FieldOutside: flag(s.state.Outside),
	}
}

func (s *Server) notificationsLocked() map[string]any {
	out := make(map[string]any, len(s.state.Notifications))
	for k, v := range s.state.Notifications {
		out[k] = flag(v)
	}
	return out
}

// batteryLocked builds an unsolicited battery frame.
func (s *Server) batteryLocked(cmd string) map[string]any {
	return request{}.reply(cmd, s.batteryFields())
}

func (s *Server) batteryLockedFor(req request) map[string]any {
	return req.reply(protocol.CmdDoorBattery, s.batteryFields())
}

func (s *Server) batteryFields() map[string]any {
	return map[string]any{
		protocol.FieldBatteryPercent: s.state.BatteryPercent,
		protocol.FieldBatteryPresent: flag(s.state.BatteryPresent),
		protocol.FieldACPresent:      flag(s.state.ACPresent),
	}
}
