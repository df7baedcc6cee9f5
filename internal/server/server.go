package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/handler"
	"github.com/shiftwatch/shiftwatch/internal/middleware"
	"github.com/shiftwatch/shiftwatch/internal/presence"
	"github.com/shiftwatch/shiftwatch/internal/session"
	"github.com/shiftwatch/shiftwatch/internal/store"
	ws "github.com/shiftwatch/shiftwatch/internal/websocket"
)

// Config carries the tunables the composition root wires through.
type Config struct {
	JWTSecret       []byte
	SessionTTL      time.Duration
	MaxOnline       time.Duration
	MonitorInterval time.Duration
	CleanupInterval time.Duration
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	presenceH     *handler.PresenceHandler
	adminH        *handler.AdminHandler
	authH         *handler.AuthHandler
	employeeH     *handler.EmployeeHandler
	employeeStore *store.EmployeeStore
	sessionStore  *store.SessionStore
	monitor       *presence.Monitor
	cleanup       *session.Scheduler
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	employeeStore := store.NewEmployeeStore(db)
	intervalStore := store.NewIntervalStore(db)
	aggregateStore := store.NewAggregateStore(db)
	sessionStore := store.NewSessionStore(db, cfg.JWTSecret)

	manager := presence.NewManager(employeeStore, intervalStore, aggregateStore, func(e presence.Event) {
		hub.Broadcast(ws.PresenceChanged(e.EmployeeID, string(e.OldStatus), string(e.NewStatus), e.At))
	}, logger.With("component", "presence"))
	calc := presence.NewCalculator(employeeStore, intervalStore, aggregateStore)

	monitor := presence.NewMonitor(manager, employeeStore, intervalStore, cfg.MaxOnline, cfg.MonitorInterval, logger.With("component", "auto_disconnect"))
	cleanup := session.NewScheduler(sessionStore, cfg.CleanupInterval, logger.With("component", "session_cleanup"))

	return &Server{
		db:            db,
		hub:           hub,
		presenceH:     handler.NewPresenceHandler(manager, calc, employeeStore, sessionStore, logger.With("component", "presence_handler")),
		adminH:        handler.NewAdminHandler(monitor, cleanup, sessionStore, logger.With("component", "admin_handler")),
		authH:         handler.NewAuthHandler(employeeStore, sessionStore, cfg.SessionTTL, logger.With("component", "auth")),
		employeeH:     handler.NewEmployeeHandler(employeeStore, logger.With("component", "employee_handler")),
		employeeStore: employeeStore,
		sessionStore:  sessionStore,
		monitor:       monitor,
		cleanup:       cleanup,
		rateLimiter:   middleware.NewRateLimiter(),
		logger:        logger,
	}
}

// Monitor returns the auto-disconnect monitor for lifecycle management.
func (s *Server) Monitor() *presence.Monitor {
	return s.monitor
}

// SessionCleanup returns the session cleanup scheduler for lifecycle management.
func (s *Server) SessionCleanup() *session.Scheduler {
	return s.cleanup
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.employeeStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Presence API routes
	mux.HandleFunc("GET /api/employees", s.presenceH.List)
	mux.HandleFunc("GET /api/employees/{id}/status", s.presenceH.GetStatus)
	mux.HandleFunc("PUT /api/employees/{id}/status", s.presenceH.UpdateStatus)
	mux.HandleFunc("GET /api/employees/{id}/stats", s.presenceH.DailyStats)

	// Admin routes
	mux.Handle("POST /api/employees", middleware.RequireAdmin(http.HandlerFunc(s.employeeH.Create)))
	mux.Handle("POST /api/admin/sweeps/auto-disconnect", middleware.RequireAdmin(http.HandlerFunc(s.adminH.TriggerAutoDisconnect)))
	mux.Handle("POST /api/admin/sweeps/session-cleanup", middleware.RequireAdmin(http.HandlerFunc(s.adminH.TriggerSessionCleanup)))
	mux.Handle("GET /api/admin/sessions/stats", middleware.RequireAdmin(http.HandlerFunc(s.adminH.SessionStats)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
