package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/shiftwatch/shiftwatch/internal/presence"
	"github.com/shiftwatch/shiftwatch/internal/session"
	"github.com/shiftwatch/shiftwatch/internal/store"
)

// AdminHandler exposes the background sweeps as synchronous admin triggers
// plus operational reads. Triggers are safe to call repeatedly: a trigger
// that lands while the scheduled pass is running is coalesced, not queued.
type AdminHandler struct {
	monitor  *presence.Monitor
	cleanup  *session.Scheduler
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAdminHandler(m *presence.Monitor, c *session.Scheduler, ss *store.SessionStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{monitor: m, cleanup: c, sessions: ss, logger: logger}
}

// TriggerAutoDisconnect runs one auto-disconnect pass now.
func (h *AdminHandler) TriggerAutoDisconnect(w http.ResponseWriter, r *http.Request) {
	disconnected, ran := h.monitor.Sweep(time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"ran":          ran,
		"disconnected": disconnected,
	})
}

// TriggerSessionCleanup runs one session cleanup pass now.
func (h *AdminHandler) TriggerSessionCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, ran := h.cleanup.Cleanup(time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"ran":     ran,
		"deleted": deleted,
	})
}

// SessionStats returns registry counts for operational visibility.
func (h *AdminHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.Stats(time.Now())
	if err != nil {
		h.logger.Error("session stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read session stats"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
