package schedule

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeDevice is an in-memory slot store.
type fakeDevice struct {
	slots    map[int]Entry
	broken   map[int]bool
	deleted  []int
	written  []int
	failList error
}

func newFakeDevice(rows ...Entry) *fakeDevice {
	d := &fakeDevice{slots: make(map[int]Entry), broken: make(map[int]bool)}
	for _, r := range rows {
		d.slots[r.Index] = r
	}
	return d
}

func (d *fakeDevice) ScheduleList(context.Context) ([]int, error) {
	if d.failList != nil {
		return nil, d.failList
	}
	var out []int
	for idx := range d.slots {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func (d *fakeDevice) Schedule(_ context.Context, index int) (Entry, error) {
	if d.broken[index] {
		return Entry{}, errors.New("fetch failed")
	}
	return d.slots[index], nil
}

func (d *fakeDevice) DeleteSchedule(_ context.Context, index int) error {
	delete(d.slots, index)
	d.deleted = append(d.deleted, index)
	return nil
}

func (d *fakeDevice) SetSchedule(_ context.Context, e Entry) error {
	d.slots[e.Index] = e
	d.written = append(d.written, e.Index)
	return nil
}

func TestSyncNoChanges(t *testing.T) {
	row := inside(3, days(1, 2, 3, 4, 5), win(6, 0, 20, 0))
	dev := newFakeDevice(row)

	res, err := NewSyncer(dev, nil).Sync(context.Background(), []Entry{row})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Changed() {
		t.Errorf("Sync() changed the device: deleted %v added %v", res.Deleted, res.Added)
	}
	if len(dev.deleted) != 0 || len(dev.written) != 0 {
		t.Errorf("device touched: deleted %v written %v", dev.deleted, dev.written)
	}
}

func TestSyncReusesFreedSlots(t *testing.T) {
	keep := inside(0, days(0), win(8, 0, 17, 0))
	drop := inside(1, days(1), win(9, 0, 10, 0))
	other := outside(2, days(6), win(7, 0, 8, 0))
	dev := newFakeDevice(keep, drop, other)

	desired := []Entry{
		keep,
		other,
		inside(0, days(3), win(12, 0, 13, 0)),
		inside(0, days(4), win(14, 0, 15, 0)),
	}

	res, err := NewSyncer(dev, nil).Sync(context.Background(), desired)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if diff := cmp.Diff([]int{1}, res.Deleted); diff != "" {
		t.Errorf("Deleted mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3}, dev.written); diff != "" {
		t.Errorf("written slots mismatch (-want +got):\n%s", diff)
	}
	if len(res.Final) != 4 {
		t.Errorf("Final has %d rows, want 4", len(res.Final))
	}

	// A second sync against the result is a no-op.
	res, err = NewSyncer(dev, nil).Sync(context.Background(), desired)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if res.Changed() {
		t.Errorf("second Sync() changed the device: deleted %v added %v", res.Deleted, res.Added)
	}
}

func TestSyncSkipsUnreadableSlots(t *testing.T) {
	row := inside(0, days(0), win(8, 0, 17, 0))
	dev := newFakeDevice(row, inside(1, days(1), win(1, 0, 2, 0)))
	dev.broken[1] = true

	res, err := NewSyncer(dev, nil).Sync(context.Background(), []Entry{row, inside(0, days(2), win(3, 0, 4, 0))})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	// Slot 1 could not be read but is still in use, so the new row goes to 2.
	if diff := cmp.Diff([]int{2}, dev.written); diff != "" {
		t.Errorf("written slots mismatch (-want +got):\n%s", diff)
	}
	if len(res.Deleted) != 0 {
		t.Errorf("Deleted = %v, want none", res.Deleted)
	}
}

func TestSyncListFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failList = errors.New("not connected")

	if _, err := NewSyncer(dev, nil).Sync(context.Background(), nil); err == nil {
		t.Fatal("Sync() error = nil, want list failure")
	}
}

func TestSyncerReplaceZone(t *testing.T) {
	in := inside(0, days(1), win(6, 0, 9, 0))
	out := outside(1, days(1), win(6, 0, 9, 0))
	dev := newFakeDevice(in, out)

	res, err := NewSyncer(dev, nil).ReplaceZone(context.Background(), ZoneInside,
		map[time.Weekday][]Window{time.Tuesday: {win(10, 0, 11, 0)}})
	if err != nil {
		t.Fatalf("ReplaceZone() error = %v", err)
	}

	if diff := cmp.Diff([]int{0}, res.Deleted); diff != "" {
		t.Errorf("Deleted mismatch (-want +got):\n%s", diff)
	}
	if len(res.Added) != 1 {
		t.Fatalf("Added = %v, want one row", res.Added)
	}
	added := res.Added[0]
	if added.Index != 0 || !added.Inside || added.Outside || !added.Days[time.Tuesday] {
		t.Errorf("added row = %v", added)
	}
	if _, ok := dev.slots[1]; !ok {
		t.Error("outside row was removed")
	}
}
