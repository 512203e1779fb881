package schedule

import "sort"

// span is a normalised [start, end) range in minutes since midnight.
type span struct {
	start int
	end   int
}

type zoneSpan struct {
	zone Zone
	span span
}

type rowKey struct {
	span span
	days [7]bool
}

// Compress reduces rows to the minimal equivalent set.
//
// Every enabled row is expanded into per-day, per-zone intervals with
// inverted windows swapped. Intervals of the same day and zone that overlap
// or touch are merged. Identical intervals across days collapse into one
// row, and inside and outside rows with the same window and days collapse
// into one row with both zones enabled. Disabled rows and empty windows
// contribute nothing.
//
// The result is enabled, sorted by (start, end, zones, days) and indexed
// 0..n-1, so Compress(Compress(x)) equals Compress(x).
func Compress(entries []Entry) []Entry {
	// Step 1: expand.
	var perDay [len(Zones)][7][]span
	for _, e := range entries {
		if !e.Enabled {
			continue
		}
		for _, z := range Zones {
			if !e.ZoneEnabled(z) {
				continue
			}
			w := e.Window(z).Normalize()
			if w.Empty() {
				continue
			}
			s := span{start: w.Start.Minutes(), end: w.End.Minutes()}
			for d, on := range e.Days {
				if on {
					perDay[z][d] = append(perDay[z][d], s)
				}
			}
		}
	}

	// Steps 2 and 3: merge per day, then group identical spans across days.
	grouped := make(map[zoneSpan][7]bool)
	for _, z := range Zones {
		for d := range perDay[z] {
			for _, s := range mergeSpans(perDay[z][d]) {
				k := zoneSpan{zone: z, span: s}
				days := grouped[k]
				days[d] = true
				grouped[k] = days
			}
		}
	}

	// Step 4: combine inside and outside rows with the same span and days.
	type zones struct{ inside, outside bool }
	rows := make(map[rowKey]zones)
	for k, days := range grouped {
		rk := rowKey{span: k.span, days: days}
		zs := rows[rk]
		if k.zone == ZoneOutside {
			zs.outside = true
		} else {
			zs.inside = true
		}
		rows[rk] = zs
	}

	out := make([]Entry, 0, len(rows))
	for rk, zs := range rows {
		e := Template()
		e.Days = rk.days
		w := Window{Start: ClockFromMinutes(rk.span.start), End: ClockFromMinutes(rk.span.end)}
		if zs.inside {
			e.SetZone(ZoneInside, w)
		}
		if zs.outside {
			e.SetZone(ZoneOutside, w)
		}
		out = append(out, e)
	}

	// Step 5: order deterministically and index.
	sort.Slice(out, func(i, j int) bool {
		return lessRow(out[i], out[j])
	})
	for i := range out {
		out[i].Index = i
	}
	return out
}

// mergeSpans sorts spans by start and merges any pair where the earlier
// end reaches the later start.
func mergeSpans(spans []span) []span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].start != sorted[j].start {
			return sorted[i].start < sorted[j].start
		}
		return sorted[i].end < sorted[j].end
	})

	merged := []span{sorted[0]}
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if last.end >= s.start {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// rowWindow returns the window shared by the zones of a compressed row.
func rowWindow(e Entry) Window {
	if e.Inside {
		return e.InsideWindow
	}
	return e.OutsideWindow
}

// zoneRank orders rows carrying both zones, then inside only, then outside only.
func zoneRank(e Entry) int {
	switch {
	case e.Inside && e.Outside:
		return 0
	case e.Inside:
		return 1
	default:
		return 2
	}
}

func dayMask(days [7]bool) int {
	mask := 0
	for i, on := range days {
		if on {
			mask |= 1 << i
		}
	}
	return mask
}

func lessRow(a, b Entry) bool {
	wa, wb := rowWindow(a), rowWindow(b)
	if wa.Start.Minutes() != wb.Start.Minutes() {
		return wa.Start.Minutes() < wb.Start.Minutes()
	}
	if wa.End.Minutes() != wb.End.Minutes() {
		return wa.End.Minutes() < wb.End.Minutes()
	}
	if ra, rb := zoneRank(a), zoneRank(b); ra != rb {
		return ra < rb
	}
	return dayMask(a.Days) < dayMask(b.Days)
}
