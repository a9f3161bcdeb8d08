package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/0xPuncker/cronwatch/internal/jobs"
	"github.com/0xPuncker/cronwatch/internal/metrics"
	"github.com/0xPuncker/cronwatch/internal/notifications"
	"github.com/0xPuncker/cronwatch/pkg/calendar"
	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	jobs      *jobs.Service
	schedules *cron.Registry
	auditor   *cron.Auditor
	scheduler *cron.Scheduler
	notifier  *notifications.NotificationService
	calendar  *calendar.CalendarService
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	startedAt time.Time
}

func NewHandler(
	jobService *jobs.Service,
	schedules *cron.Registry,
	auditor *cron.Auditor,
	scheduler *cron.Scheduler,
	notifier *notifications.NotificationService,
	cal *calendar.CalendarService,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		jobs:      jobService,
		schedules: schedules,
		auditor:   auditor,
		scheduler: scheduler,
		notifier:  notifier,
		calendar:  cal,
		metrics:   m,
		logger:    logger,
		startedAt: time.Now(),
	}
}

type jobRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type filterRequest struct {
	Filters []string `json:"filters"`
}

type propertiesRequest struct {
	Properties []string `json:"properties"`
}

type scheduleRequest struct {
	JobIndex json.Number `json:"job_index"`
	Minutes  json.Number `json:"minutes"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.scheduler != nil {
		status["scheduler_running"] = h.scheduler.IsRunning()
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	listing := h.jobs.List()
	h.metrics.SetJobs(len(listing))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  listing,
		"count": len(listing),
	})
}

func (h *Handler) AddJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !h.decode(w, r, "add_job", &req) {
		return
	}

	start := time.Now()
	added, err := h.jobs.Add(req.URL, req.Name)
	h.metrics.ObserveOperation("add_job", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.afterJobChange(r.Context(), notifications.ActionAdded, *added)
	h.writeJSON(w, http.StatusCreated, added)
}

func (h *Handler) EditJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if !h.decode(w, r, "edit_job", &req) {
		return
	}

	start := time.Now()
	result, err := h.jobs.Edit(mux.Vars(r)["index"], req.URL, req.Name)
	h.metrics.ObserveOperation("edit_job", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.afterJobChange(r.Context(), notifications.ActionUpdated, result.Job)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	removed, err := h.jobs.Delete(mux.Vars(r)["index"])
	h.metrics.ObserveOperation("delete_job", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.afterJobChange(r.Context(), notifications.ActionDeleted, *removed)
	h.writeJSON(w, http.StatusOK, removed)
}

func (h *Handler) EditFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if !h.decode(w, r, "edit_filter", &req) {
		return
	}

	start := time.Now()
	updated, err := h.jobs.EditFilter(mux.Vars(r)["index"], req.Filters)
	h.metrics.ObserveOperation("edit_filter", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.afterJobChange(r.Context(), notifications.ActionUpdated, *updated)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) GetProperties(w http.ResponseWriter, r *http.Request) {
	result, err := h.jobs.EditProperties(mux.Vars(r)["index"], nil)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) EditProperties(w http.ResponseWriter, r *http.Request) {
	var req propertiesRequest
	if !h.decode(w, r, "edit_properties", &req) {
		return
	}
	if len(req.Properties) == 0 {
		h.handleError(w, types.NewError(types.InvalidInput, "edit_properties", "no properties given, use key:value"))
		return
	}

	start := time.Now()
	result, err := h.jobs.EditProperties(mux.Vars(r)["index"], req.Properties)
	h.metrics.ObserveOperation("edit_properties", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.schedules.List(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.metrics.SetSchedules(len(schedules))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

func (h *Handler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !h.decode(w, r, "add_schedule", &req) {
		return
	}

	start := time.Now()
	added, err := h.schedules.Add(r.Context(), req.JobIndex.String(), req.Minutes.String())
	h.metrics.ObserveOperation("add_schedule", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.notifier.ScheduleChanged(r.Context(), notifications.ActionAdded, *added)
	h.writeJSON(w, http.StatusCreated, added)
}

func (h *Handler) EditSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !h.decode(w, r, "edit_schedule", &req) {
		return
	}

	start := time.Now()
	updated, err := h.schedules.Edit(r.Context(), mux.Vars(r)["position"], req.Minutes.String())
	h.metrics.ObserveOperation("edit_schedule", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.notifier.ScheduleChanged(r.Context(), notifications.ActionUpdated, *updated)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	removed, err := h.schedules.Delete(r.Context(), mux.Vars(r)["position"])
	h.metrics.ObserveOperation("delete_schedule", start, err)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.notifier.ScheduleChanged(r.Context(), notifications.ActionDeleted, *removed)
	h.writeJSON(w, http.StatusOK, removed)
}

// ScheduleRuns lists the upcoming runs of one schedule, with a calendar
// link for the first of them.
func (h *Handler) ScheduleRuns(w http.ResponseWriter, r *http.Request) {
	count := calendar.DefaultRuns
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.handleError(w, types.NewError(types.InvalidInput, "upcoming_runs", "count must be a number, got %q", raw))
			return
		}
		count = n
	}

	schedule, err := h.schedules.Get(r.Context(), mux.Vars(r)["position"])
	if err != nil {
		h.handleError(w, err)
		return
	}
	runs, err := h.calendar.Upcoming(schedule.Expression, count)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response := map[string]interface{}{
		"schedule": schedule,
		"runs":     runs,
	}
	if len(runs) > 0 && schedule.JobIndex > 0 {
		if link, err := h.calendar.CreateRunEvent(schedule.JobIndex, schedule.Expression, runs[0]); err == nil {
			response["calendar_url"] = link
		}
	}
	h.writeJSON(w, http.StatusOK, response)
}

// RunAudit runs the schedule audit immediately.
func (h *Handler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor.Run(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) afterJobChange(ctx context.Context, action string, job jobs.Listing) {
	h.metrics.SetJobs(h.jobs.Count())
	h.notifier.JobChanged(ctx, action, job)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.handleError(w, types.WrapError(types.InvalidInput, op, err, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	kind := types.KindOf(err)
	code := statusFor(kind)

	entry := h.logger.WithFields(logrus.Fields{
		"kind":  kind,
		"error": err.Error(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	h.writeJSON(w, code, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("Failed to encode response: %v", err)
	}
}

func statusFor(kind types.Kind) int {
	switch kind {
	case types.InvalidInput, types.UnsupportedInterval:
		return http.StatusBadRequest
	case types.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
