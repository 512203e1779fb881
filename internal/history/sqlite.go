package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// SQLiteRepository stores history in the door_events and
// schedule_snapshots tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on a migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts an event. The ID and OccurredAt are generated if empty.
func (r *SQLiteRepository) Record(ctx context.Context, e *Event) error {
	if e.DoorID == "" {
		return fmt.Errorf("door id is required")
	}
	if e.Kind == "" {
		return fmt.Errorf("event kind is required")
	}
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	detail := []byte("{}")
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshalling event detail: %w", err)
		}
		detail = b
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO door_events (id, door_id, kind, value, detail, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.DoorID, string(e.Kind), e.Value, string(detail), e.OccurredAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting door event: %w", err)
	}
	return nil
}

// List returns events matching f, newest first, at most f.Limit (default
// DefaultLimit, max MaxLimit).
func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]Event, error) {
	var conditions []string
	var args []any

	if f.DoorID != "" {
		conditions = append(conditions, "door_id = ?")
		args = append(args, f.DoorID)
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, f.Since.UnixMilli())
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	limit := clampLimit(f.Limit)
	args = append(args, limit)

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, door_id, kind, value, detail, occurred_at FROM door_events %s
		 ORDER BY occurred_at DESC, rowid DESC LIMIT ?`,
		where,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying door events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var e Event
		var kind, detail string
		var occurred int64

		if err := rows.Scan(&e.ID, &e.DoorID, &kind, &e.Value, &detail, &occurred); err != nil {
			return nil, fmt.Errorf("scanning door event: %w", err)
		}
		e.Kind = Kind(kind)
		e.OccurredAt = time.UnixMilli(occurred).UTC()
		if detail != "" && detail != "{}" {
			if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshalling event detail: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating door events: %w", err)
	}
	return events, nil
}

// Prune deletes events older than olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().Add(-olderThan).UnixMilli()
	result, err := r.db.ExecContext(ctx, "DELETE FROM door_events WHERE occurred_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting door events: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// SaveSchedule stores entries as the door's latest known schedule.
func (r *SQLiteRepository) SaveSchedule(ctx context.Context, doorID string, entries []schedule.Entry) error {
	if entries == nil {
		entries = []schedule.Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshalling schedule: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO schedule_snapshots (door_id, entries, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (door_id) DO UPDATE SET entries = excluded.entries, updated_at = excluded.updated_at`,
		doorID, string(b), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("saving schedule snapshot: %w", err)
	}
	return nil
}

// LoadSchedule returns the stored schedule, or ErrNoSnapshot.
func (r *SQLiteRepository) LoadSchedule(ctx context.Context, doorID string) ([]schedule.Entry, time.Time, error) {
	var raw string
	var updated int64
	err := r.db.QueryRowContext(ctx,
		"SELECT entries, updated_at FROM schedule_snapshots WHERE door_id = ?", doorID,
	).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading schedule snapshot: %w", err)
	}

	var entries []schedule.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, time.Time{}, fmt.Errorf("unmarshalling schedule: %w", err)
	}
	return entries, time.UnixMilli(updated).UTC(), nil
}
