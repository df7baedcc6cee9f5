package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiftwatch/shiftwatch/internal/auth"
	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 24 * time.Hour

type AuthHandler struct {
	employees  *store.EmployeeStore
	sessions   *store.SessionStore
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(es *store.EmployeeStore, ss *store.SessionStore, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthHandler{employees: es, sessions: ss, sessionTTL: sessionTTL, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string          `json:"token"`
	Employee *model.Employee `json:"employee"`
}

// Login checks credentials and issues a session. Logging in does not change
// presence status; the employee goes online explicitly.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	emp, err := h.employees.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	if emp == nil || bcrypt.CompareHashAndPassword([]byte(emp.PasswordHash), []byte(req.Password)) != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	sess, err := h.sessions.Create(emp.ID, r.UserAgent(), h.sessionTTL)
	if err != nil {
		h.logger.Error("create session", "employee_id", emp.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, Employee: emp})
}

// Logout revokes the presented session. Presence status is untouched; a
// logged-out employee can still be marked online until they transition.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ac, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.sessions.Deactivate(ac.Token); err != nil {
		h.logger.Error("logout", "employee_id", ac.EmployeeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "logout failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
