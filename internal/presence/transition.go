package presence

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

var (
	// ErrEmployeeNotFound means the employee id does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrInvalidStatus means the status literal is not online, break, or offline.
	ErrInvalidStatus = errors.New("invalid status")
)

// Event describes a committed status change, delivered to the notify callback.
type Event struct {
	EmployeeID int64        `json:"employee_id"`
	OldStatus  model.Status `json:"old_status"`
	NewStatus  model.Status `json:"new_status"`
	At         time.Time    `json:"at"`
}

// TransitionResult reports what a transition did: at most one interval
// closed and at most one opened.
type TransitionResult struct {
	Employee *model.Employee       `json:"employee"`
	Closed   *model.StatusInterval `json:"closed,omitempty"`
	Opened   *model.StatusInterval `json:"opened,omitempty"`
}

// Manager is the sole writer of status intervals and of the employee status
// field. Interactive status changes and the auto-disconnect sweep both go
// through Transition; a per-employee mutex serializes the
// read-close-open-update sequence so concurrent callers for the same
// employee cannot observe the same open interval or both open one.
type Manager struct {
	employees  *store.EmployeeStore
	intervals  *store.IntervalStore
	aggregates *store.AggregateStore
	notify     func(Event)
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewManager creates a transition manager. notify may be nil; when set it is
// called after each committed transition (dashboard broadcast, audit).
func NewManager(es *store.EmployeeStore, is *store.IntervalStore, as *store.AggregateStore, notify func(Event), logger *slog.Logger) *Manager {
	return &Manager{
		employees:  es,
		intervals:  is,
		aggregates: as,
		notify:     notify,
		logger:     logger,
		locks:      make(map[int64]*sync.Mutex),
	}
}

func (m *Manager) lockFor(employeeID int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[employeeID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[employeeID] = l
	}
	return l
}

// Transition moves the employee to newStatus as of now. It closes the open
// interval if one exists, opens a new one unless newStatus is offline,
// updates the employee's status field, and refreshes the affected daily
// aggregates. Entering online also stamps last_login. Session rows are
// never touched: offline means "not working", not "logged out".
//
// An interval left open by a crash is closed here with the current now,
// which over-counts the crashed period; there is no restart reconciliation.
func (m *Manager) Transition(employeeID int64, newStatus model.Status, now time.Time) (*TransitionResult, error) {
	if !newStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	now = now.UTC()

	l := m.lockFor(employeeID)
	l.Lock()
	defer l.Unlock()

	emp, err := m.employees.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, ErrEmployeeNotFound
	}
	oldStatus := emp.Status

	result := &TransitionResult{}

	open, err := m.intervals.Open(employeeID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		duration := int64(now.Sub(open.StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}
		closed, err := m.intervals.Close(open.ID, now, duration)
		if err != nil {
			return nil, err
		}
		result.Closed = closed
	}

	if newStatus != model.StatusOffline {
		opened, err := m.intervals.Create(employeeID, newStatus, now)
		if err != nil {
			return nil, err
		}
		result.Opened = opened
	}

	if err := m.employees.UpdateStatus(employeeID, newStatus); err != nil {
		return nil, err
	}
	if newStatus == model.StatusOnline {
		if err := m.employees.UpdateLastLogin(employeeID, now); err != nil {
			return nil, err
		}
	}

	m.refreshAffectedDays(employeeID, result.Closed, now)

	emp, err = m.employees.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	result.Employee = emp

	if m.notify != nil {
		m.notify(Event{
			EmployeeID: employeeID,
			OldStatus:  oldStatus,
			NewStatus:  newStatus,
			At:         now,
		})
	}

	return result, nil
}

// refreshAffectedDays recomputes the aggregate cache for the day of the
// closed interval and for today. Failures only leave the cache stale; the
// next read recomputes it, so they are logged and not surfaced.
func (m *Manager) refreshAffectedDays(employeeID int64, closed *model.StatusInterval, now time.Time) {
	days := map[time.Time]struct{}{store.Day(now): {}}
	if closed != nil {
		days[store.Day(closed.StartTime)] = struct{}{}
	}
	for day := range days {
		if _, err := m.aggregates.Refresh(employeeID, day, now); err != nil {
			m.logger.Error("refresh daily aggregate", "employee_id", employeeID, "date", day.Format("2006-01-02"), "error", err)
		}
	}
}
