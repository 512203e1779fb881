package bridge

import (
	"maps"
	"strconv"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/history"
	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
)

// listener maps door replies and events onto retained state topics,
// telemetry, metrics and history. Callbacks run on the client's reader
// goroutine and must not issue door requests.
func (b *Bridge) listener() petdoor.Listener {
	l := petdoor.Listener{
		Name: listenerName,

		OnDoorStatus: b.onDoorStatus,
		OnSettings:   b.onSettings,
		OnBattery:    b.onBattery,
		OnStats:      b.onStats,

		OnNotifications: func(n petdoor.Notifications) {
			b.publishState(petdoor.CategoryNotifications, n.Map())
		},
		OnHardwareInfo: func(h petdoor.HardwareInfo) {
			b.publishState(petdoor.CategoryHardware, map[string]any{
				"version":  h.Version,
				"revision": h.Revision,
				"major":    h.Major,
				"minor":    h.Minor,
				"patch":    h.Patch,
			})
		},
		OnTimezone: func(tz petdoor.Timezone) {
			b.publishState(petdoor.CategoryTimezone, map[string]any{"tz": tz.TZ})
		},
		OnHoldTime: func(h petdoor.HoldTime) {
			b.publishState(petdoor.CategoryHoldTime, map[string]any{
				"units":   h.Units,
				"seconds": h.Duration().Seconds(),
			})
		},
		OnTriggerVoltage: func(v petdoor.TriggerVoltage) {
			b.publishState(petdoor.CategoryTriggerVoltage, map[string]any{
				"millivolts": v.Millivolts,
				"volts":      v.Volts(),
			})
		},
		OnSleepTriggerVoltage: func(v petdoor.SleepTriggerVoltage) {
			b.publishState(petdoor.CategorySleepTriggerVoltage, map[string]any{
				"millivolts": v.Millivolts,
				"volts":      v.Volts(),
			})
		},
		OnCommandLockout: func(c petdoor.CommandLockout) {
			b.publishState(petdoor.CategoryLockout, map[string]any{"enabled": c.Enabled})
		},
		OnAutoRetract: func(a petdoor.AutoRetract) {
			b.publishState(petdoor.CategoryAutoRetract, map[string]any{"enabled": a.Enabled})
		},

		OnSensors: make(map[petdoor.Sensor]func(bool), len(petdoor.AllSensors)),
	}

	for _, s := range petdoor.AllSensors {
		l.OnSensors[s] = func(on bool) { b.onSensor(s, on) }
	}
	return l
}

func (b *Bridge) onDoorStatus(s petdoor.DoorStatus) {
	open := s.Open()
	b.publishState(petdoor.CategoryDoorStatus, map[string]any{
		"status": s.State,
		"open":   open,
	})
	b.telemetry.WriteDoorStatus(b.doorID, s.State, open)
	b.metrics.DoorOpen(open)
	b.record(history.KindStatus, s.State, nil)
}

func (b *Bridge) onSettings(s petdoor.Settings) {
	state := maps.Clone(s.Raw)
	if state == nil {
		state = make(map[string]any)
	}
	b.publishState(petdoor.CategorySettings, state)
}

// onSensor merges one sensor flag into the retained sensors state.
func (b *Bridge) onSensor(sensor petdoor.Sensor, on bool) {
	b.statesMu.RLock()
	prev, ok := b.states[string(petdoor.CategorySensors)]
	b.statesMu.RUnlock()

	state := make(map[string]any, len(petdoor.AllSensors))
	if ok {
		maps.Copy(state, prev.State)
	}
	state[string(sensor)] = on
	b.publishState(petdoor.CategorySensors, state)
}

func (b *Bridge) onBattery(bat petdoor.Battery) {
	b.publishState(petdoor.CategoryBattery, map[string]any{
		"percent":    bat.Percent,
		"present":    bat.Present,
		"ac_present": bat.ACPresent,
	})
	b.telemetry.WriteBattery(b.doorID, bat.Percent, bat.Present, bat.ACPresent)
	b.metrics.Battery(bat.Percent)

	b.statesMu.Lock()
	changed := bat.Percent != b.lastBattery
	b.lastBattery = bat.Percent
	b.statesMu.Unlock()
	if changed {
		b.record(history.KindBattery, strconv.Itoa(bat.Percent), map[string]any{
			"ac_present": bat.ACPresent,
		})
	}
}

func (b *Bridge) onStats(s petdoor.Stats) {
	b.publishState(petdoor.CategoryStats, map[string]any{
		"open_cycles":   s.OpenCycles,
		"auto_retracts": s.AutoRetracts,
	})
	b.telemetry.WriteOpenStats(b.doorID, s.OpenCycles, s.AutoRetracts)
	b.metrics.OpenCycles(s.OpenCycles)
}

// onConnect runs on the client's reader goroutine, so the refresh is
// handed to the refresh loop.
func (b *Bridge) onConnect() {
	b.Info("door connected", "door_id", b.doorID)
	b.telemetry.WriteConnection(b.doorID, petdoor.StateConnected.String())
	b.record(history.KindConnection, petdoor.StateConnected.String(), nil)
	b.requestRefresh()
	b.publishHealth()
}

func (b *Bridge) onDisconnect() {
	b.Warn("door disconnected", "door_id", b.doorID)
	b.telemetry.WriteConnection(b.doorID, petdoor.StateDisconnected.String())
	b.record(history.KindConnection, petdoor.StateDisconnected.String(), nil)
	b.publishHealth()
}

func (b *Bridge) onPing(latency time.Duration) {
	b.telemetry.WriteLatency(b.doorID, latency)
}

func (b *Bridge) publishHealth() {
	if err := b.health.PublishNow(); err != nil {
		b.Warn("failed to publish health", "error", err)
	}
}
