package model

import "time"

// Status is an employee's work-availability state. It is independent of
// login state: an employee with a valid session can still be offline.
type Status string

const (
	StatusOnline  Status = "online"
	StatusBreak   Status = "break"
	StatusOffline Status = "offline"
)

// Valid reports whether s is one of the three recognized status literals.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusBreak, StatusOffline:
		return true
	}
	return false
}

// StatusInterval is a span of wall-clock time during which an employee held
// one status. An interval with no EndTime is open: the employee is currently
// in that status. Offline periods are never materialized as intervals.
type StatusInterval struct {
	ID         int64      `json:"id"`
	EmployeeID int64      `json:"employee_id"`
	Status     Status     `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Duration   *int64     `json:"duration,omitempty"` // seconds, set only when closed
	CreatedAt  time.Time  `json:"created_at"`
}

// DailyAggregate caches per-status totals for one employee on one calendar
// day, summed over closed intervals only. It is fully recomputed on refresh,
// never incremented.
type DailyAggregate struct {
	ID             int64     `json:"id"`
	EmployeeID     int64     `json:"employee_id"`
	Date           time.Time `json:"date"`
	OnlineSeconds  int64     `json:"online_seconds"`
	BreakSeconds   int64     `json:"break_seconds"`
	OfflineSeconds int64     `json:"offline_seconds"`
	LastCalculated time.Time `json:"last_calculated"`
}

// Statistics is the as-of-now duration payload for one employee. All values
// are whole seconds, never negative.
type Statistics struct {
	OnlineTime         int64 `json:"onlineTime"`
	BreakTime          int64 `json:"breakTime"`
	OfflineTime        int64 `json:"offlineTime"`
	CurrentSessionTime int64 `json:"currentSessionTime"`
	TotalTime          int64 `json:"totalTime"`
}

// DailyStats is one calendar day's totals in a ranged stats response.
type DailyStats struct {
	Date        string `json:"date"`
	OnlineTime  int64  `json:"onlineTime"`
	BreakTime   int64  `json:"breakTime"`
	OfflineTime int64  `json:"offlineTime"`
	TotalTime   int64  `json:"totalTime"`
}
