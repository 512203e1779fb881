package history

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// Kind classifies a door event.
type Kind string

// Event kinds.
const (
	KindStatus     Kind = "status"
	KindConnection Kind = "connection"
	KindBattery    Kind = "battery"
	KindCommand    Kind = "command"
	KindSchedule   Kind = "schedule"
)

// List limits.
const (
	// DefaultLimit is used when Filter.Limit is not positive.
	DefaultLimit = 50

	// MaxLimit caps Filter.Limit.
	MaxLimit = 500
)

// ErrNoSnapshot is returned by LoadSchedule when no schedule has been saved
// for the door.
var ErrNoSnapshot = errors.New("history: no schedule snapshot")

// Event is one recorded occurrence at a door.
type Event struct {
	ID         string         `json:"id"`
	DoorID     string         `json:"door_id"`
	Kind       Kind           `json:"kind"`
	Value      string         `json:"value,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Filter selects events for List. Zero fields match everything.
type Filter struct {
	DoorID string
	Kind   Kind
	Since  time.Time
	Limit  int
}

// Repository stores door events and schedule snapshots.
//
// Implementations must be safe for concurrent use.
type Repository interface {
	// Record stores an event, filling in ID and OccurredAt when empty.
	Record(ctx context.Context, e *Event) error

	// List returns matching events, newest first.
	List(ctx context.Context, f Filter) ([]Event, error)

	// Prune deletes events older than olderThan and returns how many
	// were removed.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)

	// SaveSchedule replaces the stored schedule for a door.
	SaveSchedule(ctx context.Context, doorID string, entries []schedule.Entry) error

	// LoadSchedule returns the stored schedule and when it was saved.
	LoadSchedule(ctx context.Context, doorID string) ([]schedule.Entry, time.Time, error)
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}
