package schedule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// MinutesPerDay is the exclusive upper bound of a Clock in minutes.
const MinutesPerDay = 24 * 60

// Clock is a time of day with minute resolution.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"min"`
}

// ClockFromMinutes builds a Clock from minutes since midnight.
func ClockFromMinutes(m int) Clock {
	return Clock{Hour: m / 60, Minute: m % 60}
}

// ParseClock parses "HH:MM". "24:00" is accepted as 23:59, the last slot
// the door can store.
func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &c.Hour, &c.Minute); err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if c.Hour == 24 && c.Minute == 0 {
		return Clock{Hour: 23, Minute: 59}, nil
	}
	if !c.Valid() {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return c, nil
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Valid reports whether the clock is within 00:00-23:59.
func (c Clock) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Window is a half-open [Start, End) time range within one day.
type Window struct {
	Start Clock
	End   Clock
}

// Normalize returns the window with Start <= End, swapping an inverted pair.
func (w Window) Normalize() Window {
	if w.End.Minutes() < w.Start.Minutes() {
		return Window{Start: w.End, End: w.Start}
	}
	return w
}

// Empty reports whether the window covers no time.
func (w Window) Empty() bool {
	return w.Start.Minutes() == w.End.Minutes()
}

func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// Zone selects the inside or outside sensor.
type Zone int

// Sensor zones.
const (
	ZoneInside Zone = iota
	ZoneOutside
)

// Zones lists every zone in a stable order.
var Zones = [...]Zone{ZoneInside, ZoneOutside}

func (z Zone) String() string {
	if z == ZoneOutside {
		return "outside"
	}
	return "inside"
}

// ParseZone maps "inside" or "outside" to a Zone.
func ParseZone(s string) (Zone, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inside":
		return ZoneInside, nil
	case "outside":
		return ZoneOutside, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownZone, s)
	}
}

// Entry is one schedule row as stored by the door.
type Entry struct {
	Index int

	// Days is indexed Sunday first (time.Weekday order).
	Days [7]bool

	Inside  bool
	Outside bool
	Enabled bool

	InsideWindow  Window
	OutsideWindow Window
}

// Template returns an enabled row with no days, no zones and 00:00 times.
func Template() Entry {
	return Entry{Enabled: true}
}

// ZoneEnabled reports whether the row enables the given zone.
func (e Entry) ZoneEnabled(z Zone) bool {
	if z == ZoneOutside {
		return e.Outside
	}
	return e.Inside
}

// Window returns the row's window for the given zone.
func (e Entry) Window(z Zone) Window {
	if z == ZoneOutside {
		return e.OutsideWindow
	}
	return e.InsideWindow
}

// SetZone enables a zone with the given window.
func (e *Entry) SetZone(z Zone, w Window) {
	if z == ZoneOutside {
		e.Outside = true
		e.OutsideWindow = w
		return
	}
	e.Inside = true
	e.InsideWindow = w
}

// ClearZone disables a zone and zeroes its window.
func (e *Entry) ClearZone(z Zone) {
	if z == ZoneOutside {
		e.Outside = false
		e.OutsideWindow = Window{}
		return
	}
	e.Inside = false
	e.InsideWindow = Window{}
}

// Map returns the row in the door's JSON shape.
func (e Entry) Map() map[string]any {
	days := make([]int, len(e.Days))
	for i, on := range e.Days {
		if on {
			days[i] = 1
		}
	}
	return map[string]any{
		protocol.FieldIndex:        e.Index,
		protocol.FieldDaysOfWeek:   days,
		protocol.FieldInside:       e.Inside,
		protocol.FieldOutside:      e.Outside,
		protocol.FieldEnabled:      e.Enabled,
		protocol.FieldInsideStart:  e.InsideWindow.Start,
		protocol.FieldInsideEnd:    e.InsideWindow.End,
		protocol.FieldOutsideStart: e.OutsideWindow.Start,
		protocol.FieldOutsideEnd:   e.OutsideWindow.End,
	}
}

// MarshalJSON encodes the row in the door's JSON shape.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Map())
}

// UnmarshalJSON decodes and validates a row in the door's JSON shape.
func (e *Entry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	decoded, err := Decode(m)
	if err != nil {
		return err
	}
	*e = decoded
	return nil
}

// String returns a compact human-readable form, e.g. "#2 Mon,Tue in 06:00-20:00".
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d ", e.Index)

	var days []string
	for i, on := range e.Days {
		if on {
			days = append(days, time.Weekday(i).String()[:3])
		}
	}
	if len(days) == 0 {
		b.WriteString("-")
	} else {
		b.WriteString(strings.Join(days, ","))
	}
	if e.Inside {
		b.WriteString(" in " + e.InsideWindow.String())
	}
	if e.Outside {
		b.WriteString(" out " + e.OutsideWindow.String())
	}
	if !e.Enabled {
		b.WriteString(" (disabled)")
	}
	return b.String()
}

// Validate checks a decoded device row.
//
// The row must carry an index and a seven-element daysOfWeek list. Each
// enabled zone must carry both its start and end times, each with hour and
// min. A row with neither zone enabled needs no times.
func Validate(m map[string]any) error {
	if _, ok := m[protocol.FieldIndex]; !ok {
		return fmt.Errorf("%w: missing %s", ErrInvalidEntry, protocol.FieldIndex)
	}
	if _, ok := protocol.Int(m[protocol.FieldIndex]); !ok {
		return fmt.Errorf("%w: %s is not an integer", ErrInvalidEntry, protocol.FieldIndex)
	}

	days, ok := m[protocol.FieldDaysOfWeek].([]any)
	if !ok {
		return fmt.Errorf("%w: %s must be a list", ErrInvalidEntry, protocol.FieldDaysOfWeek)
	}
	if len(days) != 7 {
		return fmt.Errorf("%w: %s has %d elements, want 7", ErrInvalidEntry, protocol.FieldDaysOfWeek, len(days))
	}

	for _, z := range Zones {
		enabled, err := zoneFlag(m, z)
		if err != nil {
			return err
		}
		if !enabled {
			continue
		}
		startKey, endKey := zoneTimeKeys(z)
		for _, key := range []string{startKey, endKey} {
			if _, err := decodeClock(m, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode validates and converts a device row.
func Decode(m map[string]any) (Entry, error) {
	if err := Validate(m); err != nil {
		return Entry{}, err
	}

	var e Entry
	e.Index, _ = protocol.Int(m[protocol.FieldIndex])

	for i, v := range m[protocol.FieldDaysOfWeek].([]any) {
		on, ok := protocol.Bool(v)
		if !ok {
			return Entry{}, fmt.Errorf("%w: %s[%d] = %v", ErrInvalidEntry, protocol.FieldDaysOfWeek, i, v)
		}
		e.Days[i] = on
	}

	e.Inside, _ = zoneFlag(m, ZoneInside)
	e.Outside, _ = zoneFlag(m, ZoneOutside)

	e.Enabled = true
	if v, ok := m[protocol.FieldEnabled]; ok {
		enabled, recognised := protocol.Bool(v)
		if !recognised {
			return Entry{}, fmt.Errorf("%w: %s = %v", ErrInvalidEntry, protocol.FieldEnabled, v)
		}
		e.Enabled = enabled
	}

	// Times of a disabled zone are kept when present so the row round-trips.
	e.InsideWindow = decodeWindow(m, ZoneInside)
	e.OutsideWindow = decodeWindow(m, ZoneOutside)

	return e, nil
}

func zoneFlag(m map[string]any, z Zone) (bool, error) {
	key := protocol.FieldInside
	if z == ZoneOutside {
		key = protocol.FieldOutside
	}
	v, ok := m[key]
	if !ok {
		return false, nil
	}
	on, recognised := protocol.Bool(v)
	if !recognised {
		return false, fmt.Errorf("%w: %s = %v", ErrInvalidEntry, key, v)
	}
	return on, nil
}

func zoneTimeKeys(z Zone) (start, end string) {
	if z == ZoneOutside {
		return protocol.FieldOutsideStart, protocol.FieldOutsideEnd
	}
	return protocol.FieldInsideStart, protocol.FieldInsideEnd
}

func decodeClock(m map[string]any, key string) (Clock, error) {
	obj, ok := m[key].(map[string]any)
	if !ok {
		return Clock{}, fmt.Errorf("%w: missing %s", ErrInvalidEntry, key)
	}
	hour, ok := protocol.Int(obj[protocol.FieldHour])
	if !ok {
		return Clock{}, fmt.Errorf("%w: %s.%s missing", ErrInvalidEntry, key, protocol.FieldHour)
	}
	minute, ok := protocol.Int(obj[protocol.FieldMinute])
	if !ok {
		return Clock{}, fmt.Errorf("%w: %s.%s missing", ErrInvalidEntry, key, protocol.FieldMinute)
	}
	c := Clock{Hour: hour, Minute: minute}
	if !c.Valid() {
		return Clock{}, fmt.Errorf("%w: %s = %s", ErrInvalidEntry, key, c)
	}
	return c, nil
}

func decodeWindow(m map[string]any, z Zone) Window {
	startKey, endKey := zoneTimeKeys(z)
	start, _ := decodeClock(m, startKey)
	end, _ := decodeClock(m, endKey)
	return Window{Start: start, End: end}
}

// MondayToSunday converts a Monday-first weekday index to Sunday-first.
func MondayToSunday(day int) int {
	return (day + 1) % 7
}

// SundayToMonday converts a Sunday-first weekday index to Monday-first.
func SundayToMonday(day int) int {
	return (day + 6) % 7
}

// ByDay lists the windows each weekday has for one zone.
//
// Disabled rows and rows without the zone are ignored. Windows within a day
// keep the order of the input rows.
func ByDay(entries []Entry, z Zone) map[time.Weekday][]Window {
	out := make(map[time.Weekday][]Window)
	for _, e := range entries {
		if !e.Enabled || !e.ZoneEnabled(z) {
			continue
		}
		for d, on := range e.Days {
			if on {
				day := time.Weekday(d)
				out[day] = append(out[day], e.Window(z))
			}
		}
	}
	return out
}

// ReplaceZone rebuilds a schedule with one zone's windows replaced.
//
// Rows carrying only the other zone are kept unchanged. Rows carrying both
// zones are kept with the replaced zone cleared. Rows carrying only the
// replaced zone are dropped. One new row is then added per day and window.
// The result is not compressed; indices are sequential from 0.
func ReplaceZone(current []Entry, z Zone, days map[time.Weekday][]Window) []Entry {
	var out []Entry
	for _, e := range current {
		if !e.ZoneEnabled(z) {
			if e.Inside || e.Outside {
				out = append(out, e)
			}
			continue
		}
		other := ZoneOutside
		if z == ZoneOutside {
			other = ZoneInside
		}
		if e.ZoneEnabled(other) {
			e.ClearZone(z)
			out = append(out, e)
		}
	}

	for d := time.Sunday; d <= time.Saturday; d++ {
		for _, w := range days[d] {
			e := Template()
			e.Days[d] = true
			e.SetZone(z, w)
			out = append(out, e)
		}
	}

	for i := range out {
		out[i].Index = i
	}
	return out
}
