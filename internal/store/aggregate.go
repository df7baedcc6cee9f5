package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// AggregateStore is the derived per-day totals cache. Refresh recomputes a
// row from scratch out of the closed intervals of that day; it never
// increments, so redundant refreshes are harmless.
type AggregateStore struct {
	db        *sql.DB
	intervals *IntervalStore
}

func NewAggregateStore(db *sql.DB) *AggregateStore {
	return &AggregateStore{db: db, intervals: NewIntervalStore(db)}
}

func scanAggregate(scanner interface{ Scan(...any) error }) (*model.DailyAggregate, error) {
	var a model.DailyAggregate
	err := scanner.Scan(
		&a.ID, &a.EmployeeID, &a.Date, &a.OnlineSeconds,
		&a.BreakSeconds, &a.OfflineSeconds, &a.LastCalculated,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

const aggregateCols = `id, employee_id, date, online_seconds, break_seconds, offline_seconds, last_calculated`

// Day truncates t to UTC midnight of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *AggregateStore) Get(employeeID int64, day time.Time) (*model.DailyAggregate, error) {
	row := s.db.QueryRow(
		`SELECT `+aggregateCols+` FROM daily_aggregates WHERE employee_id = ? AND date = ?`,
		employeeID, Day(day),
	)
	a, err := scanAggregate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get aggregate: %w", err)
	}
	return a, nil
}

// Refresh recomputes the aggregate for the employee's calendar day from
// closed intervals and upserts the result with last_calculated = now.
func (s *AggregateStore) Refresh(employeeID int64, day, now time.Time) (*model.DailyAggregate, error) {
	dayStart := Day(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	totals, err := s.intervals.SumClosedByRange(employeeID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("refresh aggregate: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO daily_aggregates (employee_id, date, online_seconds, break_seconds, offline_seconds, last_calculated)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (employee_id, date) DO UPDATE SET
		   online_seconds = excluded.online_seconds,
		   break_seconds = excluded.break_seconds,
		   offline_seconds = excluded.offline_seconds,
		   last_calculated = excluded.last_calculated`,
		employeeID, dayStart,
		totals[model.StatusOnline], totals[model.StatusBreak], totals[model.StatusOffline],
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert aggregate: %w", err)
	}

	return s.Get(employeeID, dayStart)
}
