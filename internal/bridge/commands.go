package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/petdoor"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

var (
	// errInvalidCommand is returned for an action the bridge does not know.
	errInvalidCommand = errors.New("bridge: unknown action")

	// errInvalidParameters is returned when a command's value is unusable.
	errInvalidParameters = errors.New("bridge: invalid parameters")

	// errBusy is acknowledged when the command queue is full.
	errBusy = errors.New("bridge: command queue full")
)

// execute runs one command against the door.
func (b *Bridge) execute(ctx context.Context, action string, cmd CommandMessage) error {
	switch action {
	case ActionOpen:
		return b.door.Open(ctx)
	case ActionOpenAndHold:
		return b.door.OpenAndHold(ctx)
	case ActionClose:
		return b.door.Close(ctx)

	case ActionPower:
		return b.toggle(ctx, cmd, b.door.SetPower)
	case ActionInside:
		return b.toggle(ctx, cmd, b.door.SetInside)
	case ActionOutside:
		return b.toggle(ctx, cmd, b.door.SetOutside)
	case ActionTimers:
		return b.toggle(ctx, cmd, b.door.SetTimersEnabled)
	case ActionLockout:
		return b.toggle(ctx, cmd, b.door.SetCommandLockout)
	case ActionAutoRetract:
		return b.toggle(ctx, cmd, b.door.SetAutoRetract)

	case ActionHoldTime:
		d, err := cmd.seconds()
		if err != nil {
			return err
		}
		return b.door.SetHoldTime(ctx, d)
	case ActionTimezone:
		tz, err := cmd.text()
		if err != nil {
			return err
		}
		return b.door.SetTimezone(ctx, tz)

	case ActionRefresh:
		return b.Refresh(ctx)
	case ActionSchedule:
		return b.applySchedule(ctx, cmd)

	default:
		return fmt.Errorf("%w: %q", errInvalidCommand, action)
	}
}

func (b *Bridge) toggle(ctx context.Context, cmd CommandMessage, set func(context.Context, bool) error) error {
	on, err := cmd.flag()
	if err != nil {
		return err
	}
	return set(ctx, on)
}

// applySchedule replaces one zone's weekly schedule. Days missing from
// the command are cleared.
func (b *Bridge) applySchedule(ctx context.Context, cmd CommandMessage) error {
	z, err := schedule.ParseZone(cmd.Zone)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidParameters, err)
	}
	days, err := schedule.ParseWeek(cmd.Days)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidParameters, err)
	}
	res, err := b.replaceZone(ctx, z, days)
	if err != nil {
		return err
	}
	b.Info("schedule replaced", "zone", z.String(), "deleted", len(res.Deleted), "added", len(res.Added))
	return nil
}

// flag reads the value as a boolean: true/false, 1/0, or on/off.
func (c CommandMessage) flag() (bool, error) {
	var v any
	if err := c.decodeValue(&v); err != nil {
		return false, err
	}
	if s, ok := v.(string); ok {
		switch s {
		case "on", "ON", "On":
			return true, nil
		case "off", "OFF", "Off":
			return false, nil
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if f, ok := v.(float64); ok && (f == 0 || f == 1) {
		return f == 1, nil
	}
	return false, fmt.Errorf("%w: %s is not a boolean", errInvalidParameters, c.Value)
}

// seconds reads the value as a non-negative number of seconds.
func (c CommandMessage) seconds() (time.Duration, error) {
	var v any
	if err := c.decodeValue(&v); err != nil {
		return 0, err
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", errInvalidParameters, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: %s is not a number", errInvalidParameters, c.Value)
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: hold time %v out of range", errInvalidParameters, f)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// text reads the value as a non-empty string.
func (c CommandMessage) text() (string, error) {
	var s string
	if err := c.decodeValue(&s); err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%w: empty value", errInvalidParameters)
	}
	return s, nil
}

func (c CommandMessage) decodeValue(v any) error {
	if len(c.Value) == 0 {
		return fmt.Errorf("%w: value is required", errInvalidParameters)
	}
	if err := json.Unmarshal(c.Value, v); err != nil {
		return fmt.Errorf("%w: %w", errInvalidParameters, err)
	}
	return nil
}

// classify maps a command error to its acknowledgement code and status.
func classify(err error) (string, AckStatus) {
	var cmdErr *petdoor.CommandError
	switch {
	case errors.Is(err, errBusy):
		return ErrCodeBusy, AckFailed
	case errors.Is(err, errInvalidCommand):
		return ErrCodeInvalidCommand, AckFailed
	case errors.Is(err, errInvalidParameters), errors.Is(err, petdoor.ErrInvalidConfig):
		return ErrCodeInvalidParameters, AckFailed
	case errors.Is(err, petdoor.ErrReceiptTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout, AckTimeout
	case errors.Is(err, petdoor.ErrNotConnected),
		errors.Is(err, petdoor.ErrConnectionTerminated),
		errors.Is(err, petdoor.ErrShuttingDown):
		return ErrCodeDoorUnreachable, AckFailed
	case errors.As(err, &cmdErr), errors.Is(err, petdoor.ErrCommandFailed):
		return ErrCodeDoorRejected, AckFailed
	default:
		return ErrCodeBridgeError, AckFailed
	}
}
