package presence

import (
	"errors"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

// ErrInvalidRange means a daily-stats range is malformed (end before start).
var ErrInvalidRange = errors.New("invalid date range")

// aggregateFreshness is how young a cached aggregate row may be before a
// read serves it without recomputing. Recomputation is cheap and bounded by
// the day's closed intervals, so the window stays small.
const aggregateFreshness = 5 * time.Second

// Calculator combines cached aggregates, the open interval, and "now" into
// as-of-now durations. It never mutates storage except to refresh the
// aggregate cache.
type Calculator struct {
	employees  *store.EmployeeStore
	intervals  *store.IntervalStore
	aggregates *store.AggregateStore
}

func NewCalculator(es *store.EmployeeStore, is *store.IntervalStore, as *store.AggregateStore) *Calculator {
	return &Calculator{employees: es, intervals: is, aggregates: as}
}

// Statistics computes the employee's duration buckets for asOf's calendar
// day. Closed-interval totals come from the aggregate cache; the currently
// open interval (if any) is added live, so nothing is double counted.
//
// currentSessionTime is measured from last_login, not from the interval
// log: a break segment still counts toward elapsed session time even though
// it adds nothing to the online bucket.
func (c *Calculator) Statistics(employeeID int64, asOf time.Time) (*model.Statistics, error) {
	asOf = asOf.UTC()

	emp, err := c.employees.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	agg, err := c.aggregates.Get(employeeID, asOf)
	if err != nil {
		return nil, err
	}
	if agg == nil || asOf.Sub(agg.LastCalculated) > aggregateFreshness {
		agg, err = c.aggregates.Refresh(employeeID, asOf, asOf)
		if err != nil {
			return nil, err
		}
	}

	stats := &model.Statistics{
		OnlineTime:  agg.OnlineSeconds,
		BreakTime:   agg.BreakSeconds,
		OfflineTime: agg.OfflineSeconds,
	}

	open, err := c.intervals.Open(employeeID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		elapsed := flooredSeconds(asOf.Sub(open.StartTime))
		switch open.Status {
		case model.StatusOnline:
			stats.OnlineTime += elapsed
		case model.StatusBreak:
			stats.BreakTime += elapsed
		}
	}

	if emp.Status != model.StatusOffline && emp.LastLogin != nil {
		stats.CurrentSessionTime = flooredSeconds(asOf.Sub(*emp.LastLogin))
	}

	stats.TotalTime = stats.OnlineTime + stats.BreakTime
	return stats, nil
}

// DailyRange returns one record per calendar day in [start, end], inclusive,
// including zero-activity days. Each day's aggregate is recomputed so the
// response reflects all closed intervals.
func (c *Calculator) DailyRange(employeeID int64, start, end time.Time) ([]model.DailyStats, error) {
	emp, err := c.employees.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}

	startDay := store.Day(start)
	endDay := store.Day(end)
	if endDay.Before(startDay) {
		return nil, ErrInvalidRange
	}

	now := time.Now().UTC()
	var out []model.DailyStats
	for day := startDay; !day.After(endDay); day = day.Add(24 * time.Hour) {
		agg, err := c.aggregates.Refresh(employeeID, day, now)
		if err != nil {
			return nil, err
		}
		out = append(out, model.DailyStats{
			Date:        day.Format("2006-01-02"),
			OnlineTime:  agg.OnlineSeconds,
			BreakTime:   agg.BreakSeconds,
			OfflineTime: agg.OfflineSeconds,
			TotalTime:   agg.OnlineSeconds + agg.BreakSeconds,
		})
	}
	return out, nil
}

// flooredSeconds converts a duration to whole seconds, clamped at zero to
// guard against clock skew producing negative spans.
func flooredSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}
