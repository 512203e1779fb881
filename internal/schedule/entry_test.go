package schedule

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func validRow() map[string]any {
	return map[string]any{
		"index":          json.Number("0"),
		"daysOfWeek":     []any{json.Number("0"), json.Number("1"), json.Number("1"), json.Number("1"), json.Number("1"), json.Number("1"), json.Number("0")},
		"inside":         true,
		"outside":        false,
		"enabled":        true,
		"in_start_time":  map[string]any{"hour": json.Number("6"), "min": json.Number("0")},
		"in_end_time":    map[string]any{"hour": json.Number("20"), "min": json.Number("0")},
		"out_start_time": map[string]any{"hour": json.Number("0"), "min": json.Number("0")},
		"out_end_time":   map[string]any{"hour": json.Number("0"), "min": json.Number("0")},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr bool
	}{
		{name: "valid row", mutate: func(map[string]any) {}},
		{name: "missing index", mutate: func(m map[string]any) { delete(m, "index") }, wantErr: true},
		{name: "missing daysOfWeek", mutate: func(m map[string]any) { delete(m, "daysOfWeek") }, wantErr: true},
		{
			name:    "short daysOfWeek",
			mutate:  func(m map[string]any) { m["daysOfWeek"] = []any{1, 1, 1} },
			wantErr: true,
		},
		{
			name:    "daysOfWeek not a list",
			mutate:  func(m map[string]any) { m["daysOfWeek"] = "1111100" },
			wantErr: true,
		},
		{
			name:    "inside missing start",
			mutate:  func(m map[string]any) { delete(m, "in_start_time") },
			wantErr: true,
		},
		{
			name:    "inside missing end",
			mutate:  func(m map[string]any) { delete(m, "in_end_time") },
			wantErr: true,
		},
		{
			name:    "inside missing hour",
			mutate:  func(m map[string]any) { delete(m["in_start_time"].(map[string]any), "hour") },
			wantErr: true,
		},
		{
			name: "outside enabled without outside start",
			mutate: func(m map[string]any) {
				m["inside"] = false
				m["outside"] = true
				delete(m, "out_start_time")
			},
			wantErr: true,
		},
		{
			name: "no zones needs no times",
			mutate: func(m map[string]any) {
				m["inside"] = false
				for _, k := range []string{"in_start_time", "in_end_time", "out_start_time", "out_end_time"} {
					delete(m, k)
				}
			},
		},
		{
			name:    "string zone flag",
			mutate:  func(m map[string]any) { m["inside"] = "true" },
			wantErr: false,
		},
		{
			name:    "unrecognised zone flag",
			mutate:  func(m map[string]any) { m["inside"] = "sometimes" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validRow()
			tt.mutate(m)
			err := Validate(m)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEntry) {
					t.Errorf("Validate() error = %v, want ErrInvalidEntry", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	got, err := Decode(validRow())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	want := Entry{
		Index:        0,
		Days:         [7]bool{false, true, true, true, true, true, false},
		Inside:       true,
		Enabled:      true,
		InsideWindow: Window{Start: Clock{6, 0}, End: Clock{20, 0}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEnabledDefaultsTrue(t *testing.T) {
	m := validRow()
	delete(m, "enabled")
	got, err := Decode(m)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Enabled {
		t.Error("Enabled = false, want true when the field is absent")
	}
}

func TestEntryJSONRoundTrip(t *testing.T) {
	e := Entry{
		Index:         3,
		Days:          [7]bool{true, false, false, false, false, false, true},
		Outside:       true,
		Enabled:       true,
		OutsideWindow: Window{Start: Clock{7, 30}, End: Clock{19, 45}},
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal(raw) error = %v", err)
	}
	days, _ := raw["daysOfWeek"].([]any)
	if len(days) != 7 || days[0] != float64(1) || days[1] != float64(0) {
		t.Errorf("daysOfWeek = %v, want 0/1 integers", raw["daysOfWeek"])
	}
	start, _ := raw["out_start_time"].(map[string]any)
	if start["hour"] != float64(7) || start["min"] != float64(30) {
		t.Errorf("out_start_time = %v", raw["out_start_time"])
	}

	var back Entry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(e, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplate(t *testing.T) {
	want := Entry{Enabled: true}
	if diff := cmp.Diff(want, Template()); diff != "" {
		t.Errorf("Template() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeekdayConversion(t *testing.T) {
	tests := []struct {
		name string
		fn   func(int) int
		in   int
		want int
	}{
		{"monday to sunday-first", MondayToSunday, 0, 1},
		{"sunday to sunday-first", MondayToSunday, 6, 0},
		{"wednesday to sunday-first", MondayToSunday, 2, 3},
		{"sunday to monday-first", SundayToMonday, 0, 6},
		{"monday to monday-first", SundayToMonday, 1, 0},
		{"saturday to monday-first", SundayToMonday, 6, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	for d := 0; d < 7; d++ {
		if got := SundayToMonday(MondayToSunday(d)); got != d {
			t.Errorf("round trip of %d = %d", d, got)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{input: "06:00", want: Clock{6, 0}},
		{input: "23:59", want: Clock{23, 59}},
		{input: "24:00", want: Clock{23, 59}},
		{input: "7:5", want: Clock{7, 5}},
		{input: "25:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClock) {
					t.Errorf("ParseClock(%q) error = %v, want ErrInvalidClock", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseClock(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestByDay(t *testing.T) {
	entries := []Entry{
		{Days: [7]bool{false, true, true}, Inside: true, Enabled: true, InsideWindow: Window{Clock{6, 0}, Clock{20, 0}}},
		{Days: [7]bool{false, true}, Outside: true, Enabled: true, OutsideWindow: Window{Clock{8, 0}, Clock{9, 0}}},
		{Days: [7]bool{true}, Inside: true, Enabled: false, InsideWindow: Window{Clock{1, 0}, Clock{2, 0}}},
	}

	got := ByDay(entries, ZoneInside)
	want := map[time.Weekday][]Window{
		time.Monday:  {{Clock{6, 0}, Clock{20, 0}}},
		time.Tuesday: {{Clock{6, 0}, Clock{20, 0}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ByDay(inside) mismatch (-want +got):\n%s", diff)
	}
}

func TestReplaceZone(t *testing.T) {
	both := Window{Clock{8, 0}, Clock{17, 0}}
	current := []Entry{
		{Index: 4, Days: [7]bool{true}, Inside: true, Outside: true, Enabled: true, InsideWindow: both, OutsideWindow: both},
		{Index: 5, Days: [7]bool{false, true}, Inside: true, Enabled: true, InsideWindow: both},
		{Index: 6, Days: [7]bool{false, false, true}, Outside: true, Enabled: true, OutsideWindow: both},
	}
	evening := Window{Clock{18, 0}, Clock{22, 0}}

	got := ReplaceZone(current, ZoneInside, map[time.Weekday][]Window{time.Friday: {evening}})

	want := []Entry{
		{Index: 0, Days: [7]bool{true}, Outside: true, Enabled: true, OutsideWindow: both},
		{Index: 1, Days: [7]bool{false, false, true}, Outside: true, Enabled: true, OutsideWindow: both},
		{Index: 2, Days: [7]bool{5: true}, Inside: true, Enabled: true, InsideWindow: evening},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReplaceZone() mismatch (-want +got):\n%s", diff)
	}
}
