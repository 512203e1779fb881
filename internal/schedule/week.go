package schedule

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Span is a window written as "HH:MM" strings, the form used in
// configuration files and MQTT payloads.
type Span struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// ParseWeekday accepts a full or three-letter English day name in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			full := strings.ToLower(d.String())
			if name == full || name == full[:3] {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDay, s)
}

// ParseWeek converts day names and spans into windows per weekday. Empty
// windows are dropped; a day listed with no windows stays in the result so
// that ReplaceZone clears it.
func ParseWeek(days map[string][]Span) (map[time.Weekday][]Window, error) {
	out := make(map[time.Weekday][]Window, len(days))
	for name, spans := range days {
		day, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		windows := out[day]
		if windows == nil {
			windows = []Window{}
		}
		for _, sp := range spans {
			from, err := ParseClock(sp.From)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			to, err := ParseClock(sp.To)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			w := Window{Start: from, End: to}.Normalize()
			if !w.Empty() {
				windows = append(windows, w)
			}
		}
		out[day] = windows
	}
	return out, nil
}

// FormatWeek is the inverse of ParseWeek. Days are keyed by lower-case
// full name and windows are sorted by start time.
func FormatWeek(days map[time.Weekday][]Window) map[string][]Span {
	out := make(map[string][]Span, len(days))
	for day, windows := range days {
		sorted := slices.Clone(windows)
		slices.SortFunc(sorted, func(a, b Window) int {
			return a.Start.Minutes() - b.Start.Minutes()
		})
		spans := make([]Span, 0, len(sorted))
		for _, w := range sorted {
			spans = append(spans, Span{From: w.Start.String(), To: w.End.String()})
		}
		out[strings.ToLower(day.String())] = spans
	}
	return out
}
