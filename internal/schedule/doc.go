// Package schedule models the pet door's schedule slots and keeps them in
// sync with a desired set of time windows.
//
// The door stores a small number of rows. Each row enables inside and/or
// outside sensing for a window of the day on a set of weekdays:
//
//	{
//	  "index": 0,
//	  "daysOfWeek": [0, 1, 1, 1, 1, 1, 0],
//	  "inside": true, "outside": false, "enabled": true,
//	  "in_start_time":  {"hour": 6,  "min": 0},
//	  "in_end_time":    {"hour": 20, "min": 0},
//	  "out_start_time": {"hour": 0,  "min": 0},
//	  "out_end_time":   {"hour": 0,  "min": 0}
//	}
//
// Days are indexed Sunday first, matching time.Weekday.
//
// Compress reduces an arbitrary list of rows to the minimal equivalent set,
// Diff compares rows by content (never by index), and Syncer applies the
// result to a Device with the fewest deletes and writes.
package schedule
