package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiftwatch/shiftwatch/internal/store"
)

// EmployeeHandler covers the minimal identity surface this service owns:
// admins provision employee accounts so sessions and presence have someone
// to attach to. The wider HR/identity system lives elsewhere.
type EmployeeHandler struct {
	employees *store.EmployeeStore
	logger    *slog.Logger
}

func NewEmployeeHandler(es *store.EmployeeStore, logger *slog.Logger) *EmployeeHandler {
	return &EmployeeHandler{employees: es, logger: logger}
}

type employeeRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, name, and password are required"})
		return
	}
	if req.Role == "" {
		req.Role = "employee"
	}
	if req.Role != "employee" && req.Role != "admin" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be employee or admin"})
		return
	}

	existing, err := h.employees.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("check existing employee", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create employee"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create employee"})
		return
	}

	emp, err := h.employees.Create(req.Email, req.Name, req.Role, string(hash))
	if err != nil {
		h.logger.Error("create employee", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create employee"})
		return
	}

	writeJSON(w, http.StatusCreated, emp)
}
