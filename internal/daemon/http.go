package daemon

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/calfstretch/internal/events"
	ferrors "git.home.luguber.info/inful/calfstretch/internal/foundation/errors"
	"git.home.luguber.info/inful/calfstretch/internal/logfields"
	"git.home.luguber.info/inful/calfstretch/internal/metrics"
	"git.home.luguber.info/inful/calfstretch/internal/notify"
	"git.home.luguber.info/inful/calfstretch/internal/reminder"
	"git.home.luguber.info/inful/calfstretch/internal/tracker"
	"git.home.luguber.info/inful/calfstretch/internal/version"
)

// HealthStatus represents the overall health of the daemon
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse represents the complete health check response
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Version   string        `json:"version"`
	Checks    []HealthCheck `json:"checks"`
}

func (d *Daemon) adminHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /status", d.withTracker(d.handleStatus))

	if cfg := d.Config(); cfg.Monitoring.Metrics.Enabled && d.registry != nil {
		mux.Handle("GET "+cfg.Monitoring.Metrics.Path, metrics.HTTPHandler(d.registry))
	}

	mux.HandleFunc("POST /api/session/{action}", d.withTracker(d.handleSessionAction))
	mux.HandleFunc("GET /api/history", d.withTracker(func(w http.ResponseWriter, _ *http.Request, t *tracker.Tracker) {
		writeJSON(w, http.StatusOK, t.History())
	}))
	mux.HandleFunc("POST /api/history/clear", d.withTracker(func(w http.ResponseWriter, r *http.Request, t *tracker.Tracker) {
		t.ClearHistory(r.Context())
		writeJSON(w, http.StatusOK, t.History())
	}))
	mux.HandleFunc("GET /api/reminders", d.withTracker(func(w http.ResponseWriter, _ *http.Request, t *tracker.Tracker) {
		writeJSON(w, http.StatusOK, t.ReminderStatuses())
	}))
	mux.HandleFunc("POST /api/reminders/{id}/toggle", d.withTracker(d.handleReminderToggle))
	mux.HandleFunc("PUT /api/reminders/{id}/time", d.withTracker(d.handleReminderTime))

	return mux
}

// withTracker answers 503 while no tracker is running.
func (d *Daemon) withTracker(h func(http.ResponseWriter, *http.Request, *tracker.Tracker)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := d.Tracker()
		if t == nil {
			writeError(w, ferrors.DaemonError("daemon is not running").Build())
			return
		}
		h(w, r, t)
	}
}

// PerformHealthChecks derives health from the daemon state and the tracker's
// advisories. Storage and permission problems degrade; a stopped daemon is unhealthy.
func (d *Daemon) PerformHealthChecks() *HealthResponse {
	resp := &HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: d.clock.Now(),
		Version:   version.Version,
	}

	status := d.GetStatus()
	t := d.Tracker()
	if status != StatusRunning || t == nil {
		resp.Status = HealthStatusUnhealthy
		resp.Checks = append(resp.Checks, HealthCheck{Name: "daemon", Status: HealthStatusUnhealthy, Message: string(status)})
		return resp
	}
	resp.Uptime = d.clock.Since(d.startTime).Round(time.Second).String()
	resp.Checks = append(resp.Checks, HealthCheck{Name: "daemon", Status: HealthStatusHealthy})

	storage := HealthCheck{Name: "storage", Status: HealthStatusHealthy}
	notifications := HealthCheck{Name: "notifications", Status: HealthStatusHealthy, Message: string(t.Permission())}
	for _, a := range t.Advisories() {
		switch a.Kind {
		case events.AdvisoryStorageDegraded:
			storage.Status = HealthStatusDegraded
			storage.Message = a.Message
		case events.AdvisoryPermissionDenied, events.AdvisoryPermissionUnknown:
			notifications.Status = HealthStatusDegraded
			notifications.Message = a.Message
		}
	}
	resp.Checks = append(resp.Checks, storage, notifications)
	if storage.Status != HealthStatusHealthy || notifications.Status != HealthStatusHealthy {
		resp.Status = HealthStatusDegraded
	}
	return resp
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := d.PerformHealthChecks()
	code := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (d *Daemon) handleStatus(w http.ResponseWriter, _ *http.Request, t *tracker.Tracker) {
	writeJSON(w, http.StatusOK, t.Status())
}

func (d *Daemon) handleSessionAction(w http.ResponseWriter, r *http.Request, t *tracker.Tracker) {
	switch action := r.PathValue("action"); action {
	case "start":
		t.Start()
	case "pause":
		t.Pause()
	case "toggle":
		t.Toggle()
	case "reset":
		t.Reset()
	case "next":
		t.StartNextSession()
	default:
		writeError(w, ferrors.NewError(ferrors.CategoryNotFound, "unknown session action").
			WithContext("action", action).Build())
		return
	}
	writeJSON(w, http.StatusOK, t.Status())
}

func (d *Daemon) handleReminderToggle(w http.ResponseWriter, r *http.Request, t *tracker.Tracker) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}
	rem, err := t.ToggleReminder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{Reminder: rem, Permission: t.Permission()})
}

type reminderTimeRequest struct {
	Time string `json:"time"`
}

func (d *Daemon) handleReminderTime(w http.ResponseWriter, r *http.Request, t *tracker.Tracker) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}
	var req reminderTimeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeError(w, ferrors.ValidationError("invalid request body").WithCause(err).Build())
		return
	}
	rem, err := t.UpdateReminderTime(r.Context(), id, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{Reminder: rem, Permission: t.Permission()})
}

type reminderResponse struct {
	Reminder   reminder.Reminder `json:"reminder"`
	Permission notify.Permission `json:"permission"`
}

func reminderID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, ferrors.ValidationError("reminder id must be an integer").WithContext("id", raw).Build())
		return 0, false
	}
	return id, true
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch ferrors.GetCategory(err) {
	case ferrors.CategoryValidation, ferrors.CategoryConfig:
		code = http.StatusBadRequest
	case ferrors.CategoryNotFound:
		code = http.StatusNotFound
	case ferrors.CategoryPermission:
		code = http.StatusForbidden
	case ferrors.CategoryDaemon:
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, errorResponse{Error: err.Error(), Category: string(ferrors.GetCategory(err))})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", logfields.Error(err))
	}
}
