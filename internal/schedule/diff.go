package schedule

// ContentKey is a row's identity for diffing. The index is not part of it.
type ContentKey struct {
	Days          [7]bool
	Inside        bool
	Outside       bool
	Enabled       bool
	InsideWindow  Window
	OutsideWindow Window
}

// Key returns the content key of a row.
func Key(e Entry) ContentKey {
	return ContentKey{
		Days:          e.Days,
		Inside:        e.Inside,
		Outside:       e.Outside,
		Enabled:       e.Enabled,
		InsideWindow:  e.InsideWindow,
		OutsideWindow: e.OutsideWindow,
	}
}

// Diff computes the changes that turn current into desired.
//
// Rows are matched by content key with multiplicity: two identical rows on
// the device and one in desired yields one deletion. Deletions are the
// indices of unmatched current rows, in input order. Additions are the
// unmatched desired rows, in input order, with their indices left for the
// caller to assign.
func Diff(current, desired []Entry) (deletes []int, adds []Entry) {
	want := make(map[ContentKey]int, len(desired))
	for _, e := range desired {
		want[Key(e)]++
	}
	have := make(map[ContentKey]int, len(current))
	for _, e := range current {
		have[Key(e)]++
	}

	for _, e := range current {
		k := Key(e)
		if want[k] > 0 {
			want[k]--
			continue
		}
		deletes = append(deletes, e.Index)
	}
	for _, e := range desired {
		k := Key(e)
		if have[k] > 0 {
			have[k]--
			continue
		}
		adds = append(adds, e)
	}
	return deletes, adds
}

// AllocateIndices picks n storage indices for new rows.
//
// Freed indices are reused first, in order. Further indices count upward
// from one past the largest existing index (0 when there are none),
// skipping any index still in use.
func AllocateIndices(existing, freed []int, n int) []int {
	if n <= 0 {
		return nil
	}

	freedSet := make(map[int]bool, len(freed))
	for _, idx := range freed {
		freedSet[idx] = true
	}
	used := make(map[int]bool, len(existing))
	next := 0
	for _, idx := range existing {
		if !freedSet[idx] {
			used[idx] = true
		}
		if idx+1 > next {
			next = idx + 1
		}
	}

	out := make([]int, 0, n)
	for _, idx := range freed {
		if len(out) == n {
			return out
		}
		out = append(out, idx)
	}
	for len(out) < n {
		for used[next] {
			next++
		}
		out = append(out, next)
		next++
	}
	return out
}
