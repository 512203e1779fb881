package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/petdoor-bridge/internal/history"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/config"
	"github.com/nerrad567/petdoor-bridge/internal/infrastructure/database"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
	"github.com/nerrad567/petdoor-bridge/migrations"
)

func setupRepo(t *testing.T) *history.SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Enabled:     true,
		Path:        filepath.Join(t.TempDir(), "history.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return history.NewSQLiteRepository(db.DB)
}

func TestRecordAndList(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	events := []*history.Event{
		{DoorID: "garden", Kind: history.KindStatus, Value: "DOOR_RISING", OccurredAt: base},
		{DoorID: "garden", Kind: history.KindBattery, Value: "87", Detail: map[string]any{"ac_present": true}, OccurredAt: base.Add(time.Minute)},
		{DoorID: "front", Kind: history.KindStatus, Value: "DOOR_CLOSED", OccurredAt: base.Add(2 * time.Minute)},
		{DoorID: "garden", Kind: history.KindStatus, Value: "DOOR_CLOSED", OccurredAt: base.Add(3 * time.Minute)},
	}
	for _, e := range events {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Record() did not assign an ID")
		}
	}

	tests := []struct {
		name   string
		filter history.Filter
		want   []string
	}{
		{"all newest first", history.Filter{}, []string{"DOOR_CLOSED", "DOOR_CLOSED", "87", "DOOR_RISING"}},
		{"by door", history.Filter{DoorID: "garden"}, []string{"DOOR_CLOSED", "87", "DOOR_RISING"}},
		{"by kind", history.Filter{DoorID: "garden", Kind: history.KindStatus}, []string{"DOOR_CLOSED", "DOOR_RISING"}},
		{"since", history.Filter{DoorID: "garden", Since: base.Add(time.Minute)}, []string{"DOOR_CLOSED", "87"}},
		{"limit", history.Filter{Limit: 1}, []string{"DOOR_CLOSED"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			values := make([]string, len(got))
			for i, e := range got {
				values[i] = e.Value
			}
			if diff := cmp.Diff(tt.want, values); diff != "" {
				t.Errorf("List() values mismatch (-want +got):\n%s", diff)
			}
		})
	}

	got, err := repo.List(ctx, history.Filter{Kind: history.KindBattery})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Detail["ac_present"] != true {
		t.Errorf("battery detail = %+v", got)
	}
	if !got[0].OccurredAt.Equal(base.Add(time.Minute)) {
		t.Errorf("OccurredAt = %v, want %v", got[0].OccurredAt, base.Add(time.Minute))
	}
}

func TestRecordValidation(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.Record(ctx, &history.Event{Kind: history.KindCommand}); err == nil {
		t.Error("Record() without door id: expected error")
	}
	if err := repo.Record(ctx, &history.Event{DoorID: "garden"}); err == nil {
		t.Error("Record() without kind: expected error")
	}
}

func TestPrune(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	old := &history.Event{DoorID: "garden", Kind: history.KindCommand, Value: "open", OccurredAt: time.Now().Add(-48 * time.Hour)}
	recent := &history.Event{DoorID: "garden", Kind: history.KindCommand, Value: "close"}
	for _, e := range []*history.Event{old, recent} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := repo.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}

	left, err := repo.List(ctx, history.Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(left) != 1 || left[0].Value != "close" {
		t.Errorf("remaining events = %+v", left)
	}

	if _, err := repo.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}

func TestScheduleSnapshot(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, _, err := repo.LoadSchedule(ctx, "garden"); !errors.Is(err, history.ErrNoSnapshot) {
		t.Fatalf("LoadSchedule() error = %v, want ErrNoSnapshot", err)
	}

	entry := schedule.Template()
	entry.Index = 3
	entry.Days[time.Monday] = true
	entry.SetZone(schedule.ZoneInside, schedule.Window{
		Start: schedule.Clock{Hour: 6},
		End:   schedule.Clock{Hour: 20, Minute: 30},
	})

	if err := repo.SaveSchedule(ctx, "garden", []schedule.Entry{entry}); err != nil {
		t.Fatalf("SaveSchedule() error = %v", err)
	}
	// A second save replaces the first.
	if err := repo.SaveSchedule(ctx, "garden", []schedule.Entry{entry}); err != nil {
		t.Fatalf("SaveSchedule() again error = %v", err)
	}

	got, updated, err := repo.LoadSchedule(ctx, "garden")
	if err != nil {
		t.Fatalf("LoadSchedule() error = %v", err)
	}
	if diff := cmp.Diff([]schedule.Entry{entry}, got); diff != "" {
		t.Errorf("LoadSchedule() mismatch (-want +got):\n%s", diff)
	}
	if time.Since(updated) > time.Minute {
		t.Errorf("updated = %v, want recent", updated)
	}

	if err := repo.SaveSchedule(ctx, "garden", nil); err != nil {
		t.Fatalf("SaveSchedule(nil) error = %v", err)
	}
	got, _, err = repo.LoadSchedule(ctx, "garden")
	if err != nil || len(got) != 0 {
		t.Errorf("LoadSchedule() after clearing = %v, %v", got, err)
	}
}
