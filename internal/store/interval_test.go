package store

import (
	"testing"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

func TestIntervalOpenClose(t *testing.T) {
	db := setupTestDB(t)
	es := NewEmployeeStore(db)
	is := NewIntervalStore(db)

	e, _ := es.Create("a@example.com", "A", "employee", "hash")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	iv, err := is.Create(e.ID, model.StatusOnline, start)
	if err != nil {
		t.Fatalf("create interval: %v", err)
	}
	if iv.EndTime != nil || iv.Duration != nil {
		t.Error("new interval should be open with no duration")
	}

	open, err := is.Open(e.ID)
	if err != nil {
		t.Fatalf("open interval: %v", err)
	}
	if open == nil || open.ID != iv.ID {
		t.Fatalf("open = %v, want interval %d", open, iv.ID)
	}

	end := start.Add(time.Hour)
	closed, err := is.Close(iv.ID, end, 3600)
	if err != nil {
		t.Fatalf("close interval: %v", err)
	}
	if closed.EndTime == nil || !closed.EndTime.Equal(end) {
		t.Errorf("end_time = %v, want %v", closed.EndTime, end)
	}
	if closed.Duration == nil || *closed.Duration != 3600 {
		t.Errorf("duration = %v, want 3600", closed.Duration)
	}

	open, _ = is.Open(e.ID)
	if open != nil {
		t.Error("expected no open interval after close")
	}
}

func TestIntervalSecondOpenRejected(t *testing.T) {
	db := setupTestDB(t)
	es := NewEmployeeStore(db)
	is := NewIntervalStore(db)

	e, _ := es.Create("a@example.com", "A", "employee", "hash")
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if _, err := is.Create(e.ID, model.StatusOnline, start); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := is.Create(e.ID, model.StatusBreak, start.Add(time.Minute)); err == nil {
		t.Error("expected unique index to reject a second open interval")
	}
}

func TestIntervalSumClosedByRange(t *testing.T) {
	db := setupTestDB(t)
	es := NewEmployeeStore(db)
	is := NewIntervalStore(db)

	e, _ := es.Create("a@example.com", "A", "employee", "hash")
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// Two closed online spans and one closed break span
	iv1, _ := is.Create(e.ID, model.StatusOnline, day.Add(9*time.Hour))
	is.Close(iv1.ID, day.Add(10*time.Hour), 3600)
	iv2, _ := is.Create(e.ID, model.StatusBreak, day.Add(10*time.Hour))
	is.Close(iv2.ID, day.Add(10*time.Hour+30*time.Minute), 1800)
	iv3, _ := is.Create(e.ID, model.StatusOnline, day.Add(11*time.Hour))
	is.Close(iv3.ID, day.Add(12*time.Hour), 3600)

	// Open interval must be excluded from the sums
	is.Create(e.ID, model.StatusOnline, day.Add(13*time.Hour))

	totals, err := is.SumClosedByRange(e.ID, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("sum closed: %v", err)
	}
	if totals[model.StatusOnline] != 7200 {
		t.Errorf("online = %d, want 7200", totals[model.StatusOnline])
	}
	if totals[model.StatusBreak] != 1800 {
		t.Errorf("break = %d, want 1800", totals[model.StatusBreak])
	}

	// Range excludes the next day
	next := day.Add(24 * time.Hour)
	totals, _ = is.SumClosedByRange(e.ID, next, next.Add(24*time.Hour))
	if len(totals) != 0 {
		t.Errorf("next day totals = %v, want empty", totals)
	}
}

func TestIntervalCountOpen(t *testing.T) {
	db := setupTestDB(t)
	es := NewEmployeeStore(db)
	is := NewIntervalStore(db)

	e, _ := es.Create("a@example.com", "A", "employee", "hash")

	count, _ := is.CountOpen(e.ID)
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	is.Create(e.ID, model.StatusOnline, time.Now().UTC())
	count, _ = is.CountOpen(e.ID)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
