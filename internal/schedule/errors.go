package schedule

import "errors"

// Domain errors for the schedule package.
var (
	// ErrInvalidEntry indicates a schedule row failed validation.
	ErrInvalidEntry = errors.New("schedule: invalid entry")

	// ErrInvalidClock indicates a time of day could not be parsed.
	ErrInvalidClock = errors.New("schedule: invalid time of day")

	// ErrUnknownZone indicates a zone name other than inside or outside.
	ErrUnknownZone = errors.New("schedule: unknown zone")

	// ErrUnknownDay indicates a weekday name that could not be parsed.
	ErrUnknownDay = errors.New("schedule: unknown day")
)
