package presence

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

const (
	// DefaultMaxOnline is the ceiling on continuous online time before an
	// employee is forcibly transitioned to offline.
	DefaultMaxOnline = 3 * time.Hour
	// DefaultMonitorInterval is how often the auto-disconnect sweep runs.
	DefaultMonitorInterval = 15 * time.Minute
)

// Monitor periodically forces employees who have been continuously online
// longer than the ceiling through the transition manager into offline. The
// forced transition does not touch session validity: an employee stays
// logged in while being marked offline for exceeding the ceiling.
type Monitor struct {
	mu        sync.RWMutex
	manager   *Manager
	employees *store.EmployeeStore
	intervals *store.IntervalStore
	maxOnline time.Duration
	interval  time.Duration
	logger    *slog.Logger
	running   atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMonitor creates an auto-disconnect monitor. Zero maxOnline or interval
// select the defaults.
func NewMonitor(manager *Manager, es *store.EmployeeStore, is *store.IntervalStore, maxOnline, interval time.Duration, logger *slog.Logger) *Monitor {
	if maxOnline <= 0 {
		maxOnline = DefaultMaxOnline
	}
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}
	return &Monitor{
		manager:   manager,
		employees: es,
		intervals: is,
		maxOnline: maxOnline,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins the sweep loop: one pass immediately, then one per interval.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		m.Sweep(time.Now())

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(time.Now())
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit. An in-flight pass runs to
// completion; each per-employee transition commits independently.
func (m *Monitor) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Sweep runs one pass, returning how many employees were disconnected and
// whether the pass ran. Overlapping triggers (manual against scheduled) are
// coalesced: a trigger while a pass is in flight returns without running.
func (m *Monitor) Sweep(now time.Time) (disconnected int, ran bool) {
	if !m.running.CompareAndSwap(false, true) {
		return 0, false
	}
	defer m.running.Store(false)

	now = now.UTC()

	online, err := m.employees.ListByStatus(model.StatusOnline)
	if err != nil {
		m.logger.Error("auto-disconnect: list online employees", "error", err)
		return 0, true
	}

	for _, emp := range online {
		open, err := m.intervals.Open(emp.ID)
		if err != nil {
			m.logger.Error("auto-disconnect: open interval", "employee_id", emp.ID, "error", err)
			continue
		}
		if open == nil || now.Sub(open.StartTime) <= m.maxOnline {
			continue
		}

		if _, err := m.manager.Transition(emp.ID, model.StatusOffline, now); err != nil {
			m.logger.Error("auto-disconnect: force offline", "employee_id", emp.ID, "error", err)
			continue
		}
		disconnected++
		m.logger.Info("auto-disconnect: forced offline",
			"employee_id", emp.ID,
			"online_since", open.StartTime,
		)
	}

	return disconnected, true
}
