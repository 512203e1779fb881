package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/petdoor-bridge/internal/history"
	"github.com/nerrad567/petdoor-bridge/internal/schedule"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID, s.accessLog, s.recoverPanics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/history", s.handleHistory)
	r.Get("/schedule", s.handleSchedule)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// handleHealth answers 200 when every check passes and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	code := http.StatusOK

	if len(s.checks) > 0 {
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		resp.Checks = make(map[string]string, len(names))
		for _, name := range names {
			if err := s.checks[name].HealthCheck(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, code, resp)
}

// handleStatus returns the bridge's view of the door.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "bridge not running")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Status())
}

// HistoryResponse is the /history body.
type HistoryResponse struct {
	Events []history.Event `json:"events"`
	Count  int             `json:"count"`
}

// handleHistory lists door events. Query parameters: limit, door_id, kind,
// since (RFC 3339).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	q := r.URL.Query()
	f := history.Filter{
		DoorID: q.Get("door_id"),
		Kind:   history.Kind(q.Get("kind")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = t
	}

	events, err := s.history.List(r.Context(), f)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("failed to list history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if events == nil {
		events = []history.Event{}
	}

	writeJSON(w, http.StatusOK, HistoryResponse{Events: events, Count: len(events)})
}

// ScheduleResponse is the /schedule body.
type ScheduleResponse struct {
	DoorID    string           `json:"door_id"`
	UpdatedAt time.Time        `json:"updated_at"`
	Entries   []schedule.Entry `json:"entries"`
}

// handleSchedule returns the last schedule read from a door. door_id
// defaults to the bridge's door.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history is disabled")
		return
	}

	doorID := r.URL.Query().Get("door_id")
	if doorID == "" {
		doorID = s.doorID
	}
	if doorID == "" {
		writeError(w, http.StatusBadRequest, "door_id is required")
		return
	}

	entries, updated, err := s.history.LoadSchedule(r.Context(), doorID)
	if errors.Is(err, history.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, "no schedule recorded for "+doorID)
		return
	}
	if err != nil {
		s.logger.Error("failed to load schedule", "door_id", doorID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	if entries == nil {
		entries = []schedule.Entry{}
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{DoorID: doorID, UpdatedAt: updated, Entries: entries})
}
