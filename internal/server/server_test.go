package server

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shiftwatch/shiftwatch/internal/database"
	"github.com/shiftwatch/shiftwatch/internal/model"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

type testEnv struct {
	ts        *httptest.Server
	db        *sql.DB
	employees *store.EmployeeStore
	admin     *model.Employee
	alice     *model.Employee
	bob       *model.Employee
}

const testPassword = "hunter2!"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Config{JWTSecret: []byte("test-secret"), SessionTTL: time.Hour}, logger)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	env := &testEnv{ts: ts, db: db, employees: store.NewEmployeeStore(db)}
	env.admin = env.createEmployee(t, "admin@example.com", "Admin", "admin")
	env.alice = env.createEmployee(t, "alice@example.com", "Alice", "employee")
	env.bob = env.createEmployee(t, "bob@example.com", "Bob", "employee")
	return env
}

func (env *testEnv) createEmployee(t *testing.T, email, name, role string) *model.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	emp, err := env.employees.Create(email, name, role, string(hash))
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return emp
}

func (env *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, env.ts.URL+path, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (env *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if out.Token == "" {
		t.Fatal("login returned empty token")
	}
	return out.Token
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/employees", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestUpdateOwnStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	path := fmt.Sprintf("/api/employees/%d/status", env.alice.ID)
	resp := env.do(t, http.MethodPut, path, token, map[string]string{"status": "online"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		EmployeeID     int64  `json:"employeeId"`
		Status         string `json:"status"`
		IsOnline       bool   `json:"isOnline"`
		ActiveSessions int64  `json:"activeSessions"`
		Statistics     *struct {
			TotalTime int64 `json:"totalTime"`
		} `json:"statistics"`
	}
	decodeJSON(t, resp, &payload)

	if payload.Status != "online" {
		t.Errorf("status = %q, want online", payload.Status)
	}
	if !payload.IsOnline || payload.ActiveSessions != 1 {
		t.Errorf("isOnline=%v activeSessions=%d, want true/1", payload.IsOnline, payload.ActiveSessions)
	}
	if payload.Statistics == nil {
		t.Error("statistics missing from payload")
	}
}

func TestUpdateStatusRejectsUnknownLiteral(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	path := fmt.Sprintf("/api/employees/%d/status", env.alice.ID)
	resp := env.do(t, http.MethodPut, path, token, map[string]string{"status": "busy"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestEmployeeCannotChangeAnothersStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	path := fmt.Sprintf("/api/employees/%d/status", env.bob.ID)
	resp := env.do(t, http.MethodPut, path, token, map[string]string{"status": "online"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestAdminCanChangeAnothersStatus(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin@example.com")

	path := fmt.Sprintf("/api/employees/%d/status", env.bob.ID)
	resp := env.do(t, http.MethodPut, path, token, map[string]string{"status": "break"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	emp, err := env.employees.GetByID(env.bob.ID)
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	if emp.Status != model.StatusBreak {
		t.Errorf("status = %q, want break", emp.Status)
	}
}

func TestGetStatusUnknownEmployee(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	resp := env.do(t, http.MethodGet, "/api/employees/9999/status", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDailyStatsRejectsInvertedRange(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	path := fmt.Sprintf("/api/employees/%d/stats?start_date=2026-03-10&end_date=2026-03-08", env.alice.ID)
	resp := env.do(t, http.MethodGet, path, token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDailyStatsIncludesZeroDays(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	path := fmt.Sprintf("/api/employees/%d/stats?start_date=2026-03-08&end_date=2026-03-10", env.alice.ID)
	resp := env.do(t, http.MethodGet, path, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var days []model.DailyStats
	decodeJSON(t, resp, &days)
	if len(days) != 3 {
		t.Fatalf("len(days) = %d, want 3", len(days))
	}
	if days[1].Date != "2026-03-09" {
		t.Errorf("days[1].Date = %q, want 2026-03-09", days[1].Date)
	}
}

func TestAdminRoutesForbiddenForEmployees(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/admin/sweeps/auto-disconnect"},
		{http.MethodPost, "/api/admin/sweeps/session-cleanup"},
		{http.MethodGet, "/api/admin/sessions/stats"},
		{http.MethodPost, "/api/employees"},
	} {
		resp := env.do(t, tc.method, tc.path, token, nil)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want 403", tc.method, tc.path, resp.StatusCode)
		}
	}
}

func TestAdminTriggersSweeps(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin@example.com")

	resp := env.do(t, http.MethodPost, "/api/admin/sweeps/auto-disconnect", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("auto-disconnect: status = %d, want 200", resp.StatusCode)
	}
	var disc struct {
		Ran          bool `json:"ran"`
		Disconnected int  `json:"disconnected"`
	}
	decodeJSON(t, resp, &disc)
	if !disc.Ran {
		t.Error("auto-disconnect pass should have run")
	}

	resp = env.do(t, http.MethodPost, "/api/admin/sweeps/session-cleanup", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session-cleanup: status = %d, want 200", resp.StatusCode)
	}
	var clean struct {
		Ran     bool  `json:"ran"`
		Deleted int64 `json:"deleted"`
	}
	decodeJSON(t, resp, &clean)
	if !clean.Ran {
		t.Error("cleanup pass should have run")
	}
}

func TestAdminCreatesEmployee(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin@example.com")

	resp := env.do(t, http.MethodPost, "/api/employees", token, map[string]string{
		"email":    "carol@example.com",
		"name":     "Carol",
		"role":     "employee",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	emp, err := env.employees.GetByEmail("carol@example.com")
	if err != nil {
		t.Fatalf("get employee: %v", err)
	}
	if emp == nil {
		t.Fatal("created employee not found")
	}
	if emp.Status != model.StatusOffline {
		t.Errorf("status = %q, want offline", emp.Status)
	}

	resp = env.do(t, http.MethodPost, "/api/employees", token, map[string]string{
		"email":    "carol@example.com",
		"name":     "Carol Again",
		"role":     "employee",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate email: status = %d, want 409", resp.StatusCode)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "alice@example.com")

	resp := env.do(t, http.MethodPost, "/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status = %d, want 200", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/employees", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked token: status = %d, want 401", resp.StatusCode)
	}
}

func TestSessionStatsPartition(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.login(t, "admin@example.com")
	aliceToken := env.login(t, "alice@example.com")

	resp := env.do(t, http.MethodPost, "/logout", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/api/admin/sessions/stats", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: status = %d, want 200", resp.StatusCode)
	}

	var stats model.SessionStats
	decodeJSON(t, resp, &stats)
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.Active != 1 {
		t.Errorf("active = %d, want 1", stats.Active)
	}
	if stats.Inactive != 1 {
		t.Errorf("inactive = %d, want 1", stats.Inactive)
	}
}
