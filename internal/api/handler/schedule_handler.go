package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/mail-scheduler/internal/api/middleware"
	"github.com/notifyhub/mail-scheduler/internal/domain"
	"github.com/notifyhub/mail-scheduler/internal/service"
)

// ScheduleHandler serves the scheduling API surface.
type ScheduleHandler struct {
	svc    *service.SchedulerService
	logger *zap.Logger
}

func NewScheduleHandler(svc *service.SchedulerService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, logger: logger}
}

// Schedule handles POST /schedule.
//
// Body: {user_id?, email, subject?, body?, send_time}. A missing user_id gets
// a generated UUID; scheduling for an existing user_id replaces the prior
// notification and its timer.
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req domain.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, jobID, err := h.svc.Schedule(r.Context(), req)
	if err != nil {
		h.logger.Warn("schedule failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"message": "scheduled",
		"user_id": n.UserID,
		"job_id":  jobID,
	})
}

// ListNotifications handles GET /notifications.
func (h *ScheduleHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.svc.ListNotifications(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	respondJSON(w, http.StatusOK, notifications)
}

// jobResponse matches the wire shape of one pending timer.
type jobResponse struct {
	ID          string    `json:"id"`
	NextRunTime time.Time `json:"next_run_time"`
	Args        []string  `json:"args"`
}

// ListJobs handles GET /jobs.
func (h *ScheduleHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	timers, err := h.svc.ListJobs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	out := make([]jobResponse, 0, len(timers))
	for _, t := range timers {
		out = append(out, jobResponse{
			ID:          t.JobID,
			NextRunTime: t.FireAt,
			Args:        []string{t.Payload},
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// Cancel handles DELETE /cancel/{job_id}.
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := h.svc.Cancel(r.Context(), jobID); err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "removed " + jobID})
}

// Home handles GET / (liveness probe).
func (h *ScheduleHandler) Home(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "mail scheduler running"})
}
