package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// IntervalStore persists the append-only status interval log. Writes go
// through the presence manager only; nothing else opens or closes intervals.
type IntervalStore struct {
	db *sql.DB
}

func NewIntervalStore(db *sql.DB) *IntervalStore {
	return &IntervalStore{db: db}
}

func scanInterval(scanner interface{ Scan(...any) error }) (*model.StatusInterval, error) {
	var iv model.StatusInterval
	var endTime sql.NullTime
	var duration sql.NullInt64

	err := scanner.Scan(
		&iv.ID, &iv.EmployeeID, &iv.Status, &iv.StartTime,
		&endTime, &duration, &iv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		t := endTime.Time
		iv.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		iv.Duration = &d
	}
	return &iv, nil
}

const intervalCols = `id, employee_id, status, start_time, end_time, duration, created_at`

// Create opens a new interval for the employee starting at start.
// The unique open-interval index rejects a second open row per employee.
func (s *IntervalStore) Create(employeeID int64, status model.Status, start time.Time) (*model.StatusInterval, error) {
	result, err := s.db.Exec(
		`INSERT INTO status_intervals (employee_id, status, start_time) VALUES (?, ?, ?)`,
		employeeID, status, start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert interval: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *IntervalStore) GetByID(id int64) (*model.StatusInterval, error) {
	row := s.db.QueryRow(`SELECT `+intervalCols+` FROM status_intervals WHERE id = ?`, id)
	iv, err := scanInterval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interval: %w", err)
	}
	return iv, nil
}

// Open returns the employee's currently open interval, or nil if the
// employee is offline (no open interval exists).
func (s *IntervalStore) Open(employeeID int64) (*model.StatusInterval, error) {
	row := s.db.QueryRow(
		`SELECT `+intervalCols+` FROM status_intervals WHERE employee_id = ? AND end_time IS NULL`,
		employeeID,
	)
	iv, err := scanInterval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open interval: %w", err)
	}
	return iv, nil
}

// Close stamps the interval with end time and duration. Durations are
// computed by the caller so the same clock reading stamps both fields.
func (s *IntervalStore) Close(id int64, end time.Time, duration int64) (*model.StatusInterval, error) {
	_, err := s.db.Exec(
		`UPDATE status_intervals SET end_time = ?, duration = ? WHERE id = ? AND end_time IS NULL`,
		end.UTC(), duration, id,
	)
	if err != nil {
		return nil, fmt.Errorf("close interval: %w", err)
	}
	return s.GetByID(id)
}

// SumClosedByRange totals closed-interval durations per status for intervals
// starting within [start, end). Open intervals are excluded; the live
// calculator accounts for them separately.
func (s *IntervalStore) SumClosedByRange(employeeID int64, start, end time.Time) (map[model.Status]int64, error) {
	rows, err := s.db.Query(
		`SELECT status, COALESCE(SUM(duration), 0)
		 FROM status_intervals
		 WHERE employee_id = ? AND end_time IS NOT NULL AND start_time >= ? AND start_time < ?
		 GROUP BY status`,
		employeeID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sum closed intervals: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.Status]int64)
	for rows.Next() {
		var status model.Status
		var seconds int64
		if err := rows.Scan(&status, &seconds); err != nil {
			return nil, fmt.Errorf("scan interval sum: %w", err)
		}
		totals[status] = seconds
	}
	return totals, rows.Err()
}

func (s *IntervalStore) ListByEmployee(employeeID int64) ([]model.StatusInterval, error) {
	rows, err := s.db.Query(
		`SELECT `+intervalCols+` FROM status_intervals WHERE employee_id = ? ORDER BY start_time ASC`,
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list intervals: %w", err)
	}
	defer rows.Close()

	var intervals []model.StatusInterval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		intervals = append(intervals, *iv)
	}
	return intervals, rows.Err()
}

func (s *IntervalStore) CountOpen(employeeID int64) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM status_intervals WHERE employee_id = ? AND end_time IS NULL`,
		employeeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open intervals: %w", err)
	}
	return count, nil
}
