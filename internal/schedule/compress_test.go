package schedule

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func days(idx ...int) [7]bool {
	var d [7]bool
	for _, i := range idx {
		d[i] = true
	}
	return d
}

func win(sh, sm, eh, em int) Window {
	return Window{Start: Clock{sh, sm}, End: Clock{eh, em}}
}

func inside(index int, d [7]bool, w Window) Entry {
	return Entry{Index: index, Days: d, Inside: true, Enabled: true, InsideWindow: w}
}

func outside(index int, d [7]bool, w Window) Entry {
	return Entry{Index: index, Days: d, Outside: true, Enabled: true, OutsideWindow: w}
}

func TestCompress(t *testing.T) {
	tests := []struct {
		name  string
		input []Entry
		want  []Entry
	}{
		{
			name:  "empty",
			input: nil,
			want:  []Entry{},
		},
		{
			name:  "single row preserved",
			input: []Entry{inside(7, days(1, 2, 3, 4, 5), win(6, 0, 20, 0))},
			want:  []Entry{inside(0, days(1, 2, 3, 4, 5), win(6, 0, 20, 0))},
		},
		{
			name: "same window on different days combines",
			input: []Entry{
				inside(0, days(0), win(8, 0, 17, 0)),
				inside(1, days(1), win(8, 0, 17, 0)),
			},
			want: []Entry{inside(0, days(0, 1), win(8, 0, 17, 0))},
		},
		{
			name: "overlapping windows merge",
			input: []Entry{
				inside(0, days(0), win(6, 0, 12, 0)),
				inside(1, days(0), win(10, 0, 18, 0)),
			},
			want: []Entry{inside(0, days(0), win(6, 0, 18, 0))},
		},
		{
			name: "touching windows merge",
			input: []Entry{
				inside(0, days(3), win(6, 0, 12, 0)),
				inside(1, days(3), win(12, 0, 14, 0)),
			},
			want: []Entry{inside(0, days(3), win(6, 0, 14, 0))},
		},
		{
			name: "contained window absorbed",
			input: []Entry{
				inside(0, days(3), win(6, 0, 20, 0)),
				inside(1, days(3), win(9, 0, 10, 0)),
			},
			want: []Entry{inside(0, days(3), win(6, 0, 20, 0))},
		},
		{
			name: "separate windows stay separate",
			input: []Entry{
				inside(0, days(0), win(14, 0, 18, 0)),
				inside(1, days(0), win(6, 0, 10, 0)),
			},
			want: []Entry{
				inside(0, days(0), win(6, 0, 10, 0)),
				inside(1, days(0), win(14, 0, 18, 0)),
			},
		},
		{
			name: "inside and outside with same window combine",
			input: []Entry{
				inside(0, days(0, 1), win(8, 0, 17, 0)),
				outside(1, days(0, 1), win(8, 0, 17, 0)),
			},
			want: []Entry{{
				Index: 0, Days: days(0, 1), Inside: true, Outside: true, Enabled: true,
				InsideWindow: win(8, 0, 17, 0), OutsideWindow: win(8, 0, 17, 0),
			}},
		},
		{
			name:  "inverted window swapped",
			input: []Entry{inside(0, days(0), win(18, 0, 6, 0))},
			want:  []Entry{inside(0, days(0), win(6, 0, 18, 0))},
		},
		{
			name: "disabled rows and empty windows dropped",
			input: []Entry{
				{Index: 0, Days: days(0), Inside: true, Enabled: false, InsideWindow: win(6, 0, 7, 0)},
				inside(1, days(1), win(9, 0, 9, 0)),
				{Index: 2, Days: days(2), Enabled: true},
			},
			want: []Entry{},
		},
		{
			name: "indices sequential",
			input: []Entry{
				inside(5, days(0), win(6, 0, 10, 0)),
				inside(10, days(1), win(14, 0, 18, 0)),
			},
			want: []Entry{
				inside(0, days(0), win(6, 0, 10, 0)),
				inside(1, days(1), win(14, 0, 18, 0)),
			},
		},
		{
			name: "merge on one day splits shared row",
			input: []Entry{
				inside(0, days(1, 2), win(8, 0, 12, 0)),
				inside(1, days(2), win(11, 0, 15, 0)),
			},
			want: []Entry{
				inside(0, days(1), win(8, 0, 12, 0)),
				inside(1, days(2), win(8, 0, 15, 0)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compress(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Compress() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompressIdempotent(t *testing.T) {
	inputs := [][]Entry{
		{
			inside(0, days(0, 1, 2), win(6, 0, 9, 0)),
			inside(1, days(2, 3), win(8, 30, 12, 0)),
			outside(2, days(0, 1, 2), win(6, 0, 9, 0)),
			outside(3, days(6), win(22, 0, 23, 59)),
			inside(4, days(4), win(17, 0, 13, 0)),
		},
		{
			inside(0, days(0, 1, 2, 3, 4, 5, 6), win(0, 0, 23, 59)),
			outside(1, days(5), win(12, 0, 12, 0)),
		},
	}

	for i, in := range inputs {
		once := Compress(in)
		twice := Compress(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("input %d: Compress not idempotent (-once +twice):\n%s", i, diff)
		}
	}
}
