package schedule

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Device is the slot storage a Syncer reads and writes.
// *petdoor.Client satisfies it.
type Device interface {
	ScheduleList(ctx context.Context) ([]int, error)
	Schedule(ctx context.Context, index int) (Entry, error)
	DeleteSchedule(ctx context.Context, index int) error
	SetSchedule(ctx context.Context, entry Entry) error
}

// Logger is the logging interface used by Syncer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SyncResult describes what a sync changed on the device.
type SyncResult struct {
	// Deleted lists the slot indices that were removed.
	Deleted []int

	// Added lists the rows written, with their assigned indices.
	Added []Entry

	// Final is the device schedule after the sync: untouched rows followed
	// by the added rows.
	Final []Entry
}

// Changed reports whether the sync touched the device.
func (r *SyncResult) Changed() bool {
	return len(r.Deleted) > 0 || len(r.Added) > 0
}

// Syncer reconciles a device's schedule slots with a desired schedule.
type Syncer struct {
	device Device
	logger Logger
}

// NewSyncer creates a Syncer. A nil logger discards output.
func NewSyncer(device Device, logger Logger) *Syncer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Syncer{device: device, logger: logger}
}

// Current reads every schedule row from the device.
//
// Rows that fail to fetch or decode are skipped with a warning. The
// returned index list is the device's full slot list, including skipped
// slots, so new rows never collide with them.
func (s *Syncer) Current(ctx context.Context) (rows []Entry, indices []int, err error) {
	indices, err = s.device.ScheduleList(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing schedule slots: %w", err)
	}

	for _, idx := range indices {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		e, err := s.device.Schedule(ctx, idx)
		if err != nil {
			s.logger.Warn("failed to fetch schedule entry", "index", idx, "error", err)
			continue
		}
		e.Index = idx
		rows = append(rows, e)
	}

	s.logger.Debug("fetched schedule", "slots", len(indices), "rows", len(rows))
	return rows, indices, nil
}

// Sync makes the device hold the compressed form of desired.
//
// Rows whose content already exists on the device are left in place
// regardless of index. Only rows missing from desired are deleted and only
// new content is written, reusing freed slots first.
func (s *Syncer) Sync(ctx context.Context, desired []Entry) (*SyncResult, error) {
	current, indices, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, current, indices, Compress(desired))
}

func (s *Syncer) apply(ctx context.Context, current []Entry, indices []int, target []Entry) (*SyncResult, error) {
	deletes, adds := Diff(current, target)
	result := &SyncResult{}

	if len(deletes) == 0 && len(adds) == 0 {
		s.logger.Debug("schedule already in sync", "rows", len(current))
		result.Final = current
		return result, nil
	}

	s.logger.Info("syncing schedule", "delete", len(deletes), "add", len(adds))

	for _, idx := range deletes {
		if err := s.device.DeleteSchedule(ctx, idx); err != nil {
			return result, fmt.Errorf("deleting schedule slot %d: %w", idx, err)
		}
		result.Deleted = append(result.Deleted, idx)
	}

	slots := AllocateIndices(indices, deletes, len(adds))
	for i, e := range adds {
		e.Index = slots[i]
		if err := s.device.SetSchedule(ctx, e); err != nil {
			return result, fmt.Errorf("writing schedule slot %d: %w", e.Index, err)
		}
		result.Added = append(result.Added, e)
	}

	for _, e := range current {
		if !slices.Contains(deletes, e.Index) {
			result.Final = append(result.Final, e)
		}
	}
	result.Final = append(result.Final, result.Added...)

	return result, nil
}

// ReplaceZone rewrites one zone's windows on the device, keeping the other
// zone's rows as they are.
func (s *Syncer) ReplaceZone(ctx context.Context, z Zone, days map[time.Weekday][]Window) (*SyncResult, error) {
	current, indices, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, current, indices, Compress(ReplaceZone(current, z, days)))
}
