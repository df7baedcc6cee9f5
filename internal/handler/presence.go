package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/auth"
	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/presence"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

type PresenceHandler struct {
	manager   *presence.Manager
	calc      *presence.Calculator
	employees *store.EmployeeStore
	sessions  *store.SessionStore
	logger    *slog.Logger
}

func NewPresenceHandler(m *presence.Manager, c *presence.Calculator, es *store.EmployeeStore, ss *store.SessionStore, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{manager: m, calc: c, employees: es, sessions: ss, logger: logger}
}

type statusPayload struct {
	EmployeeID     int64             `json:"employeeId"`
	Status         model.Status      `json:"status"`
	IsOnline       bool              `json:"isOnline"`
	ActiveSessions int64             `json:"activeSessions"`
	Statistics     *model.Statistics `json:"statistics"`
}

func (h *PresenceHandler) statusPayload(employeeID int64, now time.Time) (*statusPayload, error) {
	emp, err := h.employees.GetByID(employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, presence.ErrEmployeeNotFound
	}

	stats, err := h.calc.Statistics(employeeID, now)
	if err != nil {
		return nil, err
	}

	active, err := h.sessions.CountActive(employeeID, now)
	if err != nil {
		return nil, err
	}

	return &statusPayload{
		EmployeeID:     emp.ID,
		Status:         emp.Status,
		IsOnline:       active > 0,
		ActiveSessions: active,
		Statistics:     stats,
	}, nil
}

// GetStatus returns the employee's current status with as-of-now durations.
func (h *PresenceHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	payload, err := h.statusPayload(id, time.Now())
	if err != nil {
		if errors.Is(err, presence.ErrEmployeeNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
			return
		}
		h.logger.Error("get status", "employee_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get status"})
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

type statusChangeRequest struct {
	Status model.Status `json:"status"`
}

// UpdateStatus transitions the employee to the requested status. Employees
// may change their own status; admins may change anyone's.
func (h *PresenceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if auth.EmployeeID(r.Context()) != id && !auth.IsAdmin(r.Context()) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot change another employee's status"})
		return
	}

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	now := time.Now()
	if _, err := h.manager.Transition(id, req.Status, now); err != nil {
		switch {
		case errors.Is(err, presence.ErrInvalidStatus):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be online, break, or offline"})
		case errors.Is(err, presence.ErrEmployeeNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
		default:
			h.logger.Error("status transition", "employee_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to change status"})
		}
		return
	}

	payload, err := h.statusPayload(id, now)
	if err != nil {
		h.logger.Error("status payload after transition", "employee_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get status"})
		return
	}

	writeJSON(w, http.StatusOK, payload)
}

// DailyStats returns one record per calendar day in the requested range,
// zero-activity days included.
func (h *PresenceHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", r.URL.Query().Get("end_date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must be YYYY-MM-DD"})
		return
	}

	days, err := h.calc.DailyRange(id, start, end)
	if err != nil {
		switch {
		case errors.Is(err, presence.ErrInvalidRange):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date is before start_date"})
		case errors.Is(err, presence.ErrEmployeeNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "employee not found"})
		default:
			h.logger.Error("daily stats", "employee_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute daily stats"})
		}
		return
	}
	if days == nil {
		days = []model.DailyStats{}
	}

	writeJSON(w, http.StatusOK, days)
}

// List returns all employees with their current status for dashboards.
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List()
	if err != nil {
		h.logger.Error("list employees", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list employees"})
		return
	}
	if employees == nil {
		employees = []model.Employee{}
	}
	writeJSON(w, http.StatusOK, employees)
}
