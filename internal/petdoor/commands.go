package petdoor

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// holdTimeUnit is the length of one holdTime unit on the wire.
const holdTimeUnit = 10 * time.Millisecond

// request sends a message and waits for its reply. If ctx ends first the
// request is cancelled.
func (c *Client) request(ctx context.Context, kind protocol.Kind, command string, fields map[string]any) (Payload, error) {
	opts := []SendOption{WithNotify()}
	if fields != nil {
		opts = append(opts, WithFields(fields))
	}
	p, err := c.SendMessage(kind, command, opts...)
	if err != nil {
		return nil, err
	}
	payload, err := p.Wait(ctx)
	if ctx.Err() != nil {
		p.Cancel()
	}
	return payload, err
}

// expect narrows a reply to the payload type the command should return.
func expect[T Payload](command string, p Payload, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrUnexpectedPayload, command, p)
	}
	return v, nil
}

func (c *Client) config(ctx context.Context, command string, fields map[string]any) (Payload, error) {
	return c.request(ctx, protocol.KindConfig, command, fields)
}

func (c *Client) toggle(ctx context.Context, on bool, enable, disable string) error {
	command := disable
	if on {
		command = enable
	}
	_, err := c.config(ctx, command, nil)
	return err
}

// Open opens the door and lets it close after the hold time.
func (c *Client) Open(ctx context.Context) error {
	_, err := c.request(ctx, protocol.KindCommand, protocol.CmdOpen, nil)
	return err
}

// OpenAndHold opens the door and keeps it open until Close.
func (c *Client) OpenAndHold(ctx context.Context) error {
	_, err := c.request(ctx, protocol.KindCommand, protocol.CmdOpenAndHold, nil)
	return err
}

// Close closes the door.
func (c *Client) Close(ctx context.Context) error {
	_, err := c.request(ctx, protocol.KindCommand, protocol.CmdClose, nil)
	return err
}

// SetPower switches the door's sensors and motor on or off.
func (c *Client) SetPower(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdPowerOn, protocol.CmdPowerOff)
}

// SetInside enables or disables the inside sensor.
func (c *Client) SetInside(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdEnableInside, protocol.CmdDisableInside)
}

// SetOutside enables or disables the outside sensor.
func (c *Client) SetOutside(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdEnableOutside, protocol.CmdDisableOutside)
}

// SetTimersEnabled enables or disables schedule control.
func (c *Client) SetTimersEnabled(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdEnableTimers, protocol.CmdDisableTimers)
}

// SetCommandLockout enables or disables the physical button lockout.
func (c *Client) SetCommandLockout(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdEnableCmdLockout, protocol.CmdDisableCmdLockout)
}

// SetAutoRetract enables or disables obstruction auto-retract.
func (c *Client) SetAutoRetract(ctx context.Context, on bool) error {
	return c.toggle(ctx, on, protocol.CmdEnableAutoRetract, protocol.CmdDisableAutoRetract)
}

// RefreshSettings fetches the full settings snapshot. Settings listeners
// and sensor listeners receive it as well.
func (c *Client) RefreshSettings(ctx context.Context) (Settings, error) {
	p, err := c.config(ctx, protocol.CmdGetSettings, nil)
	return expect[Settings](protocol.CmdGetSettings, p, err)
}

// DoorStatus fetches the door's motion state.
func (c *Client) DoorStatus(ctx context.Context) (DoorStatus, error) {
	p, err := c.config(ctx, protocol.CmdGetDoorStatus, nil)
	return expect[DoorStatus](protocol.CmdGetDoorStatus, p, err)
}

// HardwareInfo fetches firmware details.
func (c *Client) HardwareInfo(ctx context.Context) (HardwareInfo, error) {
	p, err := c.config(ctx, protocol.CmdGetHardwareInfo, nil)
	return expect[HardwareInfo](protocol.CmdGetHardwareInfo, p, err)
}

// Battery fetches the battery state.
func (c *Client) Battery(ctx context.Context) (Battery, error) {
	p, err := c.config(ctx, protocol.CmdGetDoorBattery, nil)
	return expect[Battery](protocol.CmdGetDoorBattery, p, err)
}

// OpenStats fetches the lifetime counters.
func (c *Client) OpenStats(ctx context.Context) (Stats, error) {
	p, err := c.config(ctx, protocol.CmdGetOpenStats, nil)
	return expect[Stats](protocol.CmdGetOpenStats, p, err)
}

// Notifications fetches the notification flags.
func (c *Client) Notifications(ctx context.Context) (Notifications, error) {
	p, err := c.config(ctx, protocol.CmdGetNotifications, nil)
	return expect[Notifications](protocol.CmdGetNotifications, p, err)
}

// SetNotifications replaces all notification flags.
func (c *Client) SetNotifications(ctx context.Context, n Notifications) error {
	_, err := c.config(ctx, protocol.CmdSetNotifications, map[string]any{
		protocol.FieldNotifications: n.Map(),
	})
	return err
}

// Timezone fetches the door's POSIX timezone string.
func (c *Client) Timezone(ctx context.Context) (string, error) {
	p, err := c.config(ctx, protocol.CmdGetTimezone, nil)
	tz, err := expect[Timezone](protocol.CmdGetTimezone, p, err)
	return tz.TZ, err
}

// SetTimezone sets the door's POSIX timezone string.
func (c *Client) SetTimezone(ctx context.Context, tz string) error {
	_, err := c.config(ctx, protocol.CmdSetTimezone, map[string]any{protocol.FieldTimezone: tz})
	return err
}

// HoldTime fetches how long the door stays open after OPEN.
func (c *Client) HoldTime(ctx context.Context) (time.Duration, error) {
	p, err := c.config(ctx, protocol.CmdGetHoldTime, nil)
	h, err := expect[HoldTime](protocol.CmdGetHoldTime, p, err)
	return h.Duration(), err
}

// SetHoldTime sets how long the door stays open after OPEN, rounded down
// to 10ms.
func (c *Client) SetHoldTime(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: negative hold time %s", ErrInvalidConfig, d)
	}
	_, err := c.config(ctx, protocol.CmdSetHoldTime, map[string]any{
		protocol.FieldHoldTime: int(d / holdTimeUnit),
	})
	return err
}

// TriggerVoltage fetches the sensor trigger voltage in millivolts.
func (c *Client) TriggerVoltage(ctx context.Context) (int, error) {
	p, err := c.config(ctx, protocol.CmdGetSensorTriggerVoltage, nil)
	v, err := expect[TriggerVoltage](protocol.CmdGetSensorTriggerVoltage, p, err)
	return v.Millivolts, err
}

// SetTriggerVoltage sets the sensor trigger voltage in millivolts.
func (c *Client) SetTriggerVoltage(ctx context.Context, mv int) error {
	_, err := c.config(ctx, protocol.CmdSetSensorTriggerVoltage, map[string]any{protocol.FieldVoltage: mv})
	return err
}

// SleepTriggerVoltage fetches the sleep-mode trigger voltage in millivolts.
func (c *Client) SleepTriggerVoltage(ctx context.Context) (int, error) {
	p, err := c.config(ctx, protocol.CmdGetSleepSensorTriggerVoltage, nil)
	v, err := expect[SleepTriggerVoltage](protocol.CmdGetSleepSensorTriggerVoltage, p, err)
	return v.Millivolts, err
}

// SetSleepTriggerVoltage sets the sleep-mode trigger voltage in millivolts.
func (c *Client) SetSleepTriggerVoltage(ctx context.Context, mv int) error {
	_, err := c.config(ctx, protocol.CmdSetSleepSensorTriggerVoltage, map[string]any{protocol.FieldVoltage: mv})
	return err
}

// ScheduleList fetches the occupied schedule slot indices.
func (c *Client) ScheduleList(ctx context.Context) ([]int, error) {
	p, err := c.config(ctx, protocol.CmdGetScheduleList, nil)
	l, err := expect[ScheduleList](protocol.CmdGetScheduleList, p, err)
	return l.Indices, err
}

// Schedule fetches one schedule slot.
func (c *Client) Schedule(ctx context.Context, index int) (schedule.Entry, error) {
	p, err := c.config(ctx, protocol.CmdGetSchedule, map[string]any{protocol.FieldIndex: index})
	e, err := expect[ScheduleEntry](protocol.CmdGetSchedule, p, err)
	return e.Entry, err
}

// SetSchedule writes one schedule slot at entry.Index.
func (c *Client) SetSchedule(ctx context.Context, entry schedule.Entry) error {
	_, err := c.config(ctx, protocol.CmdSetSchedule, map[string]any{
		protocol.FieldIndex:    entry.Index,
		protocol.FieldSchedule: entry.Map(),
	})
	return err
}

// DeleteSchedule frees one schedule slot.
func (c *Client) DeleteSchedule(ctx context.Context, index int) error {
	_, err := c.config(ctx, protocol.CmdDeleteSchedule, map[string]any{protocol.FieldIndex: index})
	return err
}

var _ schedule.Device = (*Client)(nil)
